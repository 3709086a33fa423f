package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/handler"
	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/session"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

type Handler struct {
	handler.BaseHandler
	svc *session.Service
}

func NewHandler(svc *session.Service) *Handler {
	return &Handler{BaseHandler: handler.NewBaseHandler(), svc: svc}
}

// RegisterPublicRoutes mounts login, register and logout. Logout needs no
// live session so that it stays idempotent.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
		auth.POST("/logout", h.Logout)
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	s := r.Group("/session")
	{
		s.GET("", h.Current)
		s.PUT("/view", h.Navigate)
	}
}

func (h *Handler) Login(c *gin.Context) {
	h.start(c, session.ModeLogin, http.StatusOK)
}

func (h *Handler) Register(c *gin.Context) {
	h.start(c, session.ModeRegister, http.StatusCreated)
}

func (h *Handler) start(c *gin.Context, mode string, status int) {
	var req model.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	previous, _ := middleware.BearerToken(c)
	resp, err := h.svc.Login(c.Request.Context(), req, mode, previous)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, status, resp.Message, resp)
}

func (h *Handler) Logout(c *gin.Context) {
	token, _ := middleware.BearerToken(c)
	reset := h.svc.Logout(c.Request.Context(), token)
	httputil.RespondWithMessage(c, http.StatusOK, "Logged out", reset)
}

func (h *Handler) Current(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, sess)
}

func (h *Handler) Navigate(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.NavigateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.svc.Navigate(sess.ID, req.View)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}
