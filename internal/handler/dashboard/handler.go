package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/handler"
	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/dashboard"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

type Handler struct {
	handler.BaseHandler
	svc *dashboard.Service
}

func NewHandler(svc *dashboard.Service) *Handler {
	return &Handler{BaseHandler: handler.NewBaseHandler(), svc: svc}
}

// RegisterRoutes gates each dashboard to its role. Actions check their
// role in the service.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	d := r.Group("/dashboards")
	{
		d.GET("/patient", auth.RequireRole(model.RolePatient), h.Patient)
		d.GET("/doctor", auth.RequireRole(model.RoleDoctor), h.Doctor)
		d.GET("/asha", auth.RequireRole(model.RoleAsha), h.Asha)
		d.GET("/admin", auth.RequireRole(model.RoleAdmin), h.Admin)
		d.POST("/actions/:action", h.Act)
	}
}

func (h *Handler) Patient(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.PatientHome())
}

func (h *Handler) Doctor(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.Doctor())
}

func (h *Handler) Asha(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.Asha())
}

func (h *Handler) Admin(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.Admin())
}

func (h *Handler) Act(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.DashboardActionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.svc.Act(sess.User.Role, c.Param("action"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, res.Message, res)
}
