package emergency

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/handler"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/emergency"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

type Handler struct {
	handler.BaseHandler
	svc *emergency.Service
}

func NewHandler(svc *emergency.Service) *Handler {
	return &Handler{BaseHandler: handler.NewBaseHandler(), svc: svc}
}

// RegisterPublicRoutes exposes the directory without a session.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/emergency/contacts", h.Directory)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	e := r.Group("/emergency")
	{
		e.POST("/call", h.Call)
		e.POST("/location", h.ShareLocation)
	}
}

func (h *Handler) Directory(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.Directory())
}

func (h *Handler) Call(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.EmergencyCallRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.svc.Call(c.Request.Context(), sess.User, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusAccepted, res.Message, res)
}

// ShareLocation accepts an empty body; the location is then unknown.
func (h *Handler) ShareLocation(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.ShareLocationRequest
	if c.Request.ContentLength != 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	res, err := h.svc.ShareLocation(c.Request.Context(), sess.User, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusAccepted, res.Message, res)
}
