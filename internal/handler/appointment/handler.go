package appointment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/handler"
	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/appointment"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

const (
	eventView      = "appointments"
	eventKeepalive = "ping"

	keepaliveInterval = 25 * time.Second
)

// DoctorView is the doctor-side list plus its counters.
type DoctorView struct {
	appointment.View
	Stats model.DoctorStats `json:"stats"`
}

type Handler struct {
	handler.BaseHandler
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{BaseHandler: handler.NewBaseHandler(), svc: svc}
}

// RegisterRoutes mounts the shared list and receipts for every role and the
// doctor actions behind the doctor role.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.List)
		appointments.GET("/:id/receipt", h.Receipt)
	}

	doctor := r.Group("/doctor/appointments", auth.RequireRole(model.RoleDoctor))
	{
		doctor.GET("", h.DoctorList)
		doctor.GET("/stream", h.Stream)
		doctor.POST("/:id/accept", h.Accept)
		doctor.POST("/:id/reject", h.Reject)
		doctor.POST("/:id/complete", h.Complete)
	}
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.All(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) Receipt(c *gin.Context) {
	id := c.Param("id")
	pdf, err := h.svc.Receipt(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) DoctorList(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.doctorView(h.svc.List()))
}

// Stream pushes the view as server-sent events: once on connect, then on
// every refresh until the client leaves or the watcher stops.
func (h *Handler) Stream(c *gin.Context) {
	updates, cancel := h.svc.Stream()
	defer cancel()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(eventView, h.doctorView(h.svc.List()))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-keepalive.C:
			c.SSEvent(eventKeepalive, time.Now().UTC().Format(time.RFC3339))
			return true
		case view, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(eventView, h.doctorView(view))
			return true
		}
	})
}

func (h *Handler) Accept(c *gin.Context) {
	h.transition(c, h.svc.Accept)
}

func (h *Handler) Reject(c *gin.Context) {
	h.transition(c, h.svc.Reject)
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

func (h *Handler) transition(c *gin.Context, fn func(context.Context, model.User, string) (*appointment.Result, error)) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), sess.User, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, res.Message, res.Appointment)
}

func (h *Handler) doctorView(v appointment.View) DoctorView {
	return DoctorView{View: v, Stats: appointment.Stats(v.Appointments, time.Now())}
}
