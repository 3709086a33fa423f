package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/repository"
	"github.com/sehatsathi/sehatsathi-api/internal/repository/memory"
	"github.com/sehatsathi/sehatsathi-api/internal/service/booking"
	"github.com/sehatsathi/sehatsathi-api/internal/service/catalog"
	"github.com/sehatsathi/sehatsathi-api/internal/service/payment"
	"github.com/sehatsathi/sehatsathi-api/pkg/circuitbreaker"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/messaging"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	router *gin.Engine
	store  *repository.AppointmentStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := metrics.NewTestMetrics()
	cat, err := catalog.NewService()
	require.NoError(t, err)

	broker := messaging.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })
	store := repository.NewAppointmentStore(memory.NewKV(), broker, logger.Nop(), m, repository.AppointmentStoreConfig{MaxBytes: 1 << 20, CASAttempts: 3})
	gw := payment.NewStubGateway(circuitbreaker.Settings{}, nil, m, logger.Nop())
	svc := booking.NewService(cat, store, gw, nil, booking.Config{MaxFileBytes: 1 << 10}, m, logger.Nop())

	sess := &model.Session{ID: "sess-1", User: model.User{Name: "Ramesh", Role: model.RolePatient, Email: "ramesh@example.com"}}
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSession, sess)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api)

	return &fixture{router: r, store: store}
}

func (f *fixture) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return f.send(t, req)
}

func flowOf(t *testing.T, env envelope) model.BookingFlow {
	t.Helper()
	var flow model.BookingFlow
	require.NoError(t, json.Unmarshal(env.Data, &flow))
	return flow
}

func TestBookingFlow(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/booking", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.BookingSelectingDoctor, flowOf(t, env).State)

	code, env = f.do(t, http.MethodPost, "/api/v1/booking/doctor", model.SelectDoctorRequest{DoctorID: 2})
	require.Equal(t, http.StatusOK, code)
	flow := flowOf(t, env)
	assert.Equal(t, model.BookingSelectingDateTime, flow.State)
	assert.Equal(t, "Dr. Rajesh Kumar", flow.Doctor.Name)

	code, env = f.do(t, http.MethodPost, "/api/v1/booking/payment", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please select date and time", env.Message)

	code, env = f.do(t, http.MethodPut, "/api/v1/booking/schedule", model.ScheduleRequest{Date: "2025-01-20", Time: "10:00 AM"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.BookingAttachingDocuments, flowOf(t, env).State)

	code, env = f.do(t, http.MethodPost, "/api/v1/booking/documents", model.AttachDocumentsRequest{Files: []model.FileMeta{
		{Name: "report.pdf", Size: 512, MIMEType: "application/pdf"},
		{Name: "xray.png", Size: 1000, MIMEType: "image/png"},
	}})
	require.Equal(t, http.StatusOK, code)
	flow = flowOf(t, env)
	require.Len(t, flow.Documents, 2)
	assert.Equal(t, model.Document{Name: "report.pdf", Size: "0.50 KB", Type: "PDF"}, flow.Documents[0])

	code, env = f.do(t, http.MethodDelete, "/api/v1/booking/documents/1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, flowOf(t, env).Documents, 1)

	code, _ = f.do(t, http.MethodDelete, "/api/v1/booking/documents/5", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPut, "/api/v1/booking/message", model.MessageRequest{Message: "  fever since Monday  "})
	require.Equal(t, http.StatusOK, code)
	code, env = f.do(t, http.MethodPut, "/api/v1/booking/assistance", model.AssistanceRequest{NeedAshaWorker: true})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, flowOf(t, env).NeedAshaWorker)

	code, _ = f.do(t, http.MethodPost, "/api/v1/booking/complete", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = f.do(t, http.MethodPost, "/api/v1/booking/payment", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.BookingAwaitingPaymentMethod, flowOf(t, env).State)

	code, _ = f.do(t, http.MethodPut, "/api/v1/booking/payment-method", model.PaymentMethodRequest{PaymentMethod: "cash"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodPut, "/api/v1/booking/payment-method", model.PaymentMethodRequest{PaymentMethod: model.PaymentMethodUPI})
	require.Equal(t, http.StatusOK, code)

	code, env = f.do(t, http.MethodPost, "/api/v1/booking/complete", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Appointment booked with Dr. Rajesh Kumar on 2025-01-20 at 10:00 AM | 1 document(s) attached | ASHA Worker assistance requested", env.Message)

	var confirmation model.BookingConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &confirmation))
	assert.Equal(t, model.BookingCompleted, confirmation.State)
	assert.Equal(t, "fever since Monday", confirmation.Appointment.Message)
	assert.Equal(t, "Ramesh", confirmation.Appointment.PatientName)

	stored, err := f.store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, confirmation.Appointment.ID, stored[0].ID)
	assert.Equal(t, model.AppointmentStatusPending, stored[0].Status)

	code, env = f.do(t, http.MethodGet, "/api/v1/booking", nil)
	require.Equal(t, http.StatusOK, code)
	flow = flowOf(t, env)
	assert.Nil(t, flow.Doctor)
	assert.Empty(t, flow.Documents)
}

func TestAttachDocuments_Multipart(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="scan"`)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, env := f.send(t, req)

	require.Equal(t, http.StatusOK, code)
	flow := flowOf(t, env)
	require.Len(t, flow.Documents, 1)
	assert.Equal(t, "scan", flow.Documents[0].Name)
	assert.Equal(t, "PDF", flow.Documents[0].Type)
}

func TestAttachDocuments_TooLarge(t *testing.T) {
	f := newFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/booking/documents", model.AttachDocumentsRequest{Files: []model.FileMeta{
		{Name: "mri.dcm", Size: 4096},
	}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, "file exceeds the maximum upload size", env.Message)

	code, env = f.do(t, http.MethodGet, "/api/v1/booking", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, flowOf(t, env).Documents)
}

func TestSelectDoctor_Unknown(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodPost, "/api/v1/booking/doctor", model.SelectDoctorRequest{DoctorID: 99})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodPost, "/api/v1/booking/doctor", model.SelectDoctorRequest{DoctorID: 1})
	require.Equal(t, http.StatusOK, code)

	code, env := f.do(t, http.MethodDelete, "/api/v1/booking", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.BookingSelectingDoctor, flowOf(t, env).State)
	assert.Nil(t, flowOf(t, env).Doctor)
}
