package booking

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/handler"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/booking"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

// sniffBytes is how much of an uploaded file is read for MIME detection.
const sniffBytes = 3072

const formFiles = "files"

type Handler struct {
	handler.BaseHandler
	svc *booking.Service
}

func NewHandler(svc *booking.Service) *Handler {
	return &Handler{BaseHandler: handler.NewBaseHandler(), svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	b := r.Group("/booking")
	{
		b.GET("", h.Get)
		b.DELETE("", h.Cancel)
		b.POST("/doctor", h.SelectDoctor)
		b.PUT("/schedule", h.SetSchedule)
		b.POST("/documents", h.AttachDocuments)
		b.DELETE("/documents/:index", h.RemoveDocument)
		b.PUT("/message", h.SetMessage)
		b.PUT("/assistance", h.SetAssistance)
		b.POST("/payment", h.ProceedToPayment)
		b.PUT("/payment-method", h.SelectPaymentMethod)
		b.POST("/complete", h.Complete)
	}
}

func (h *Handler) Get(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, h.svc.Get(sess.ID))
}

func (h *Handler) Cancel(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, h.svc.Cancel(sess.ID))
}

func (h *Handler) SelectDoctor(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.SelectDoctorRequest
	if !h.BindJSON(c, &req) {
		return
	}
	respond(c, func() (*model.BookingFlow, error) { return h.svc.SelectDoctor(sess.ID, req.DoctorID) })
}

func (h *Handler) SetSchedule(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.ScheduleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	respond(c, func() (*model.BookingFlow, error) { return h.svc.SetSchedule(sess.ID, req.Date, req.Time) })
}

// AttachDocuments takes either a JSON list of file metadata or a
// multipart form with one or more "files" parts. Only metadata is kept.
func (h *Handler) AttachDocuments(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	var uploads []booking.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid multipart form", err))
			return
		}
		if uploads, err = readUploads(form.File[formFiles]); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("unreadable upload", err))
			return
		}
	} else {
		var req model.AttachDocumentsRequest
		if !h.BindJSON(c, &req) {
			return
		}
		for _, f := range req.Files {
			uploads = append(uploads, booking.Upload{Name: f.Name, Size: f.Size, MIMEType: f.MIMEType})
		}
	}

	respond(c, func() (*model.BookingFlow, error) { return h.svc.AttachDocuments(sess.ID, uploads) })
}

func readUploads(files []*multipart.FileHeader) ([]booking.Upload, error) {
	uploads := make([]booking.Upload, 0, len(files))
	for _, fh := range files {
		head, err := readHead(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, booking.Upload{
			Name:     fh.Filename,
			Size:     fh.Size,
			MIMEType: fh.Header.Get("Content-Type"),
			Head:     head,
		})
	}
	return uploads, nil
}

func readHead(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}

func (h *Handler) RemoveDocument(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	index, ok := h.IntParam(c, "index")
	if !ok {
		return
	}
	respond(c, func() (*model.BookingFlow, error) { return h.svc.RemoveDocument(sess.ID, index) })
}

func (h *Handler) SetMessage(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.MessageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	respond(c, func() (*model.BookingFlow, error) { return h.svc.SetMessage(sess.ID, req.Message) })
}

func (h *Handler) SetAssistance(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.AssistanceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	respond(c, func() (*model.BookingFlow, error) { return h.svc.SetAssistance(sess.ID, req.NeedAshaWorker) })
}

func (h *Handler) ProceedToPayment(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	respond(c, func() (*model.BookingFlow, error) { return h.svc.ProceedToPayment(sess.ID) })
}

func (h *Handler) SelectPaymentMethod(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.PaymentMethodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	respond(c, func() (*model.BookingFlow, error) { return h.svc.SelectPaymentMethod(sess.ID, req.PaymentMethod) })
}

// Complete pays and books. The body is optional; a method in it overrides
// the one already selected.
func (h *Handler) Complete(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}
	var req model.PaymentMethodRequest
	if c.Request.ContentLength != 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	confirmation, err := h.svc.CompletePayment(c.Request.Context(), sess.ID, sess.User, req.PaymentMethod)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, confirmation.Message, confirmation)
}

func respond(c *gin.Context, fn func() (*model.BookingFlow, error)) {
	flow, err := fn()
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, flow)
}
