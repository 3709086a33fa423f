package chatbot

import (
	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/service/chatbot"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

type Handler struct {
	svc *chatbot.Service
}

func NewHandler(svc *chatbot.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/chatbot", h.Embed)
}

// Embed returns where the assistant frame points. The client renders it.
func (h *Handler) Embed(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.Embed())
}
