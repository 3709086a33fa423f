package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/payment"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

// CreatedAtLayout matches the ISO-8601 form browsers produce.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrMissingSelection     = apperrors.BadRequest("Please select date and time", nil)
	ErrMissingPaymentMethod = apperrors.BadRequest("Please select a payment method", nil)
	ErrInvalidPaymentMethod = apperrors.BadRequest("payment method must be one of upi, card, wallet, netbanking", nil)
	ErrFileTooLarge         = apperrors.TooLarge("file exceeds the maximum upload size", nil)
	ErrDocumentNotFound     = apperrors.NotFound("document", nil)
	ErrNoDocuments          = apperrors.BadRequest("no documents to attach", nil)
)

type DoctorCatalog interface {
	Get(id int) (*model.Doctor, error)
}

type AppointmentWriter interface {
	Append(ctx context.Context, appointment model.Appointment) error
}

// Notifier is told about confirmed bookings. Implementations must not block.
type Notifier interface {
	BookingConfirmed(appointment model.Appointment)
}

type Config struct {
	MaxFileBytes int64
	FlowTTL      time.Duration
}

// Service runs one booking flow per session.
type Service struct {
	catalog  DoctorCatalog
	store    AppointmentWriter
	gateway  payment.Gateway
	notifier Notifier
	ids      *IDGenerator
	flows    *cache.Cache
	locksMu  sync.Mutex
	locks    map[string]*sessionLock
	cfg      Config
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(catalog DoctorCatalog, store AppointmentWriter, gateway payment.Gateway, notifier Notifier, cfg Config, m *metrics.Metrics, log *logger.Logger) *Service {
	if cfg.FlowTTL <= 0 {
		cfg.FlowTTL = 30 * time.Minute
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 10 << 20
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Service{
		catalog:  catalog,
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		ids:      NewIDGenerator(),
		flows:    cache.New(cfg.FlowTTL, cfg.FlowTTL),
		locks:    make(map[string]*sessionLock),
		cfg:      cfg,
		metrics:  m,
		logger:   log.WithFields(map[string]interface{}{"component": "booking"}),
		now:      time.Now,
	}
	return s
}

// Get returns the session's flow, starting a fresh one when none exists.
func (s *Service) Get(sessionID string) *model.BookingFlow {
	unlock := s.lock(sessionID)
	defer unlock()
	flow := s.load(sessionID)
	return &flow
}

func (s *Service) SelectDoctor(sessionID string, doctorID int) (*model.BookingFlow, error) {
	doctor, err := s.catalog.Get(doctorID)
	if err != nil {
		return nil, err
	}

	return s.update(sessionID, func(flow *model.BookingFlow) error {
		flow.Doctor = &model.DoctorSnapshot{
			ID:        doctor.ID,
			Name:      doctor.Name,
			Specialty: doctor.Specialty,
			Fee:       doctor.Fee,
		}
		settle(flow)
		return nil
	})
}

func (s *Service) SetSchedule(sessionID, date, slot string) (*model.BookingFlow, error) {
	return s.update(sessionID, func(flow *model.BookingFlow) error {
		flow.Date = strings.TrimSpace(date)
		flow.Time = strings.TrimSpace(slot)
		settle(flow)
		return nil
	})
}

// AttachDocuments appends metadata for every upload. One oversized file
// rejects the whole batch.
func (s *Service) AttachDocuments(sessionID string, uploads []Upload) (*model.BookingFlow, error) {
	if len(uploads) == 0 {
		return nil, ErrNoDocuments
	}
	docs := make([]model.Document, 0, len(uploads))
	for _, u := range uploads {
		if u.Size > s.cfg.MaxFileBytes {
			s.reject("file_too_large")
			return nil, fmt.Errorf("%s is %s: %w", u.Name, FormatSize(u.Size), ErrFileTooLarge)
		}
		docs = append(docs, Describe(u))
	}

	return s.update(sessionID, func(flow *model.BookingFlow) error {
		flow.Documents = append(flow.Documents, docs...)
		return nil
	})
}

func (s *Service) RemoveDocument(sessionID string, index int) (*model.BookingFlow, error) {
	return s.update(sessionID, func(flow *model.BookingFlow) error {
		if index < 0 || index >= len(flow.Documents) {
			return fmt.Errorf("index %d: %w", index, ErrDocumentNotFound)
		}
		flow.Documents = append(flow.Documents[:index:index], flow.Documents[index+1:]...)
		return nil
	})
}

func (s *Service) SetMessage(sessionID, text string) (*model.BookingFlow, error) {
	return s.update(sessionID, func(flow *model.BookingFlow) error {
		flow.Message = strings.TrimSpace(text)
		return nil
	})
}

func (s *Service) SetAssistance(sessionID string, need bool) (*model.BookingFlow, error) {
	return s.update(sessionID, func(flow *model.BookingFlow) error {
		flow.NeedAshaWorker = need
		return nil
	})
}

func (s *Service) ProceedToPayment(sessionID string) (*model.BookingFlow, error) {
	return s.update(sessionID, func(flow *model.BookingFlow) error {
		if flow.Doctor == nil || flow.Date == "" || flow.Time == "" {
			s.reject("missing_selection")
			return ErrMissingSelection
		}
		flow.State = model.BookingAwaitingPaymentMethod
		return nil
	})
}

func (s *Service) SelectPaymentMethod(sessionID string, method model.PaymentMethod) (*model.BookingFlow, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%q: %w", method, ErrInvalidPaymentMethod)
	}
	return s.update(sessionID, func(flow *model.BookingFlow) error {
		flow.PaymentMethod = method
		return nil
	})
}

// CompletePayment charges the fee, stores the appointment and resets the
// flow. On any failure the flow is left as it was.
func (s *Service) CompletePayment(ctx context.Context, sessionID string, user model.User, method model.PaymentMethod) (*model.BookingConfirmation, error) {
	if method != "" && !method.Valid() {
		return nil, fmt.Errorf("%q: %w", method, ErrInvalidPaymentMethod)
	}

	unlock := s.lock(sessionID)
	defer unlock()

	flow := s.load(sessionID)
	if method == "" {
		method = flow.PaymentMethod
	}
	if flow.State != model.BookingAwaitingPaymentMethod || method == "" {
		s.reject("missing_payment_method")
		return nil, ErrMissingPaymentMethod
	}
	if flow.Doctor == nil || flow.Date == "" || flow.Time == "" {
		s.reject("missing_selection")
		return nil, ErrMissingSelection
	}

	id := s.ids.Next()
	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{"session_id": sessionID, "appointment_id": id})

	result, err := s.gateway.Authorize(ctx, payment.Request{
		Reference: id,
		Amount:    flow.Doctor.Fee,
		Method:    method,
		Payer:     user.Email,
	})
	if err != nil {
		s.reject("payment_failed")
		log.Warn("payment not authorized", "method", string(method), "error", err.Error())
		return nil, err
	}

	appointment := model.Appointment{
		ID:              id,
		DoctorID:        flow.Doctor.ID,
		DoctorName:      flow.Doctor.Name,
		DoctorSpecialty: flow.Doctor.Specialty,
		PatientName:     user.Name,
		PatientEmail:    user.Email,
		PatientPhone:    user.Phone,
		Date:            flow.Date,
		Time:            flow.Time,
		Type:            model.ConsultationVideo,
		Fee:             flow.Doctor.Fee,
		Documents:       append([]model.Document{}, flow.Documents...),
		Message:         flow.Message,
		NeedAshaWorker:  flow.NeedAshaWorker,
		PaymentMethod:   method,
		PaymentStatus:   model.PaymentStatusPaid,
		PaymentRef:      result.TransactionID,
		Status:          model.AppointmentStatusPending,
		CreatedAt:       s.now().UTC().Format(CreatedAtLayout),
	}

	if err := s.store.Append(ctx, appointment); err != nil {
		log.Error(err, "payment authorized but appointment not stored", "payment_ref", result.TransactionID)
		return nil, fmt.Errorf("failed to store appointment: %w", err)
	}

	next := s.fresh(sessionID)
	next.Date = flow.Date
	s.flows.Set(sessionID, next, cache.DefaultExpiration)
	if s.metrics != nil {
		s.metrics.BookingsCompleted.Inc()
	}
	log.Info("appointment booked", "doctor_id", appointment.DoctorID, "fee", appointment.Fee)

	if s.notifier != nil {
		s.notifier.BookingConfirmed(appointment.Clone())
	}

	return &model.BookingConfirmation{
		Appointment: &appointment,
		State:       model.BookingCompleted,
		Message:     confirmationMessage(appointment),
		Description: fmt.Sprintf("Payment of ₹%g via %s successful. You will receive a confirmation SMS shortly.", appointment.Fee, method),
	}, nil
}

// Cancel discards the flow.
func (s *Service) Cancel(sessionID string) *model.BookingFlow {
	unlock := s.lock(sessionID)
	defer unlock()
	s.flows.Delete(sessionID)
	flow := s.fresh(sessionID)
	return &flow
}

func (s *Service) update(sessionID string, fn func(*model.BookingFlow) error) (*model.BookingFlow, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	flow := s.load(sessionID)
	if err := fn(&flow); err != nil {
		return nil, err
	}
	flow.UpdatedAt = s.now().UTC()
	s.flows.Set(sessionID, flow, cache.DefaultExpiration)

	out := flow
	out.Documents = append([]model.Document{}, flow.Documents...)
	return &out, nil
}

func (s *Service) load(sessionID string) model.BookingFlow {
	v, ok := s.flows.Get(sessionID)
	if !ok {
		return s.fresh(sessionID)
	}
	flow := v.(model.BookingFlow)
	flow.Documents = append([]model.Document{}, flow.Documents...)
	return flow
}

func (s *Service) fresh(sessionID string) model.BookingFlow {
	return model.BookingFlow{
		SessionID: sessionID,
		State:     model.BookingSelectingDoctor,
		Documents: []model.Document{},
		UpdatedAt: s.now().UTC(),
	}
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes work on one session. The entry lives only while some
// caller holds or waits on it, independent of the flow cache.
func (s *Service) lock(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.BookingRejections.WithLabelValues(reason).Inc()
	}
}

// settle recomputes the selection state after the doctor or schedule
// changes. Leaving the payment step is explicit only through these edits.
func settle(flow *model.BookingFlow) {
	switch {
	case flow.Doctor == nil:
		flow.State = model.BookingSelectingDoctor
	case flow.Date == "" || flow.Time == "":
		flow.State = model.BookingSelectingDateTime
	default:
		flow.State = model.BookingAttachingDocuments
	}
}

func confirmationMessage(a model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointment booked with %s on %s at %s", a.DoctorName, a.Date, a.Time)
	if n := len(a.Documents); n > 0 {
		fmt.Fprintf(&b, " | %d document(s) attached", n)
	}
	if a.NeedAshaWorker {
		b.WriteString(" | ASHA Worker assistance requested")
	}
	return b.String()
}
