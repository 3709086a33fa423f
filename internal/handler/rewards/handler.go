package rewards

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/handler"
	"github.com/sehatsathi/sehatsathi-api/internal/service/rewards"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

type Handler struct {
	handler.BaseHandler
	svc *rewards.Service
}

func NewHandler(svc *rewards.Service) *Handler {
	return &Handler{BaseHandler: handler.NewBaseHandler(), svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rg := r.Group("/rewards")
	{
		rg.GET("", h.Overview)
		rg.POST("/:id/redeem", h.Redeem)
	}
}

func (h *Handler) Overview(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, h.svc.Overview(sess.ID))
}

func (h *Handler) Redeem(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	id, ok := h.IntParam(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Redeem(sess.ID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, res.Message, res)
}
