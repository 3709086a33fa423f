package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sehatsathi/sehatsathi-api/internal/email"
	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/service/appointment"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
	"github.com/sehatsathi/sehatsathi-api/pkg/worker"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second
	queueSize  = 256

	channelEmail = "email"
	channelSMS   = "sms"
)

type Config struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// Service sends booking confirmations by email and SMS. Either channel
// may be nil, which disables it.
type Service struct {
	email   email.Service
	sms     SMSSender
	cfg     Config
	queue   chan model.Appointment
	wg      sync.WaitGroup
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(emailSvc email.Service, sms SMSSender, cfg Config, m *metrics.Metrics, log *logger.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = maxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = retryDelay
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		email:   emailSvc,
		sms:     sms,
		cfg:     cfg,
		queue:   make(chan model.Appointment, queueSize),
		metrics: m,
		logger:  log.WithFields(map[string]interface{}{"component": "notification"}),
	}
}

// BookingConfirmed queues a confirmation. A full queue drops it.
func (s *Service) BookingConfirmed(a model.Appointment) {
	select {
	case s.queue <- a:
	default:
		s.record("queue", "dropped")
		s.logger.Warn("notification queue full, confirmation dropped", "appointment_id", a.ID)
	}
}

// Run drains the queue until ctx ends.
func (s *Service) Run(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case a := <-s.queue:
					if err := s.Deliver(ctx, a); err != nil {
						s.logger.Error(err, "confirmation not delivered", "appointment_id", a.ID)
					}
				}
			}
		}()
	}
	s.wg.Wait()
}

// HandleEvent is the broker handler used by the standalone notifier. Only
// created appointments are confirmed.
func (s *Service) HandleEvent(ctx context.Context, payload []byte) error {
	var event model.AppointmentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return worker.Permanent(fmt.Errorf("invalid appointment event: %w", err))
	}
	if event.Type != model.AppointmentCreated || event.Appointment == nil {
		return nil
	}
	return s.Deliver(ctx, *event.Appointment)
}

// Deliver sends every enabled confirmation for a. Channels without a
// recipient are skipped.
func (s *Service) Deliver(ctx context.Context, a model.Appointment) error {
	var errs []string

	if s.email != nil && a.PatientEmail != "" {
		if err := s.sendEmail(ctx, a); err != nil {
			errs = append(errs, err.Error())
		}
	} else {
		s.record(channelEmail, "skipped")
	}

	if s.sms != nil && a.PatientPhone != "" {
		if err := s.sendSMS(ctx, a); err != nil {
			errs = append(errs, err.Error())
		}
	} else {
		s.record(channelSMS, "skipped")
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendEmail(ctx context.Context, a model.Appointment) error {
	msg := email.Message{
		To:      a.PatientEmail,
		Subject: "SehatSathi appointment booked",
		Body:    EmailBody(a),
	}
	if receipt, err := appointment.RenderReceipt(a); err == nil {
		msg.Attachments = []email.Attachment{{Name: "receipt-" + a.ID + ".pdf", Data: receipt}}
	} else {
		s.logger.Warn("receipt not attached", "appointment_id", a.ID, "error", err.Error())
	}

	err := worker.Retry(ctx, s.cfg.MaxRetries, s.cfg.RetryDelay, func() error {
		return s.email.Send(ctx, msg)
	})
	s.result(channelEmail, err)
	return err
}

func (s *Service) sendSMS(ctx context.Context, a model.Appointment) error {
	body := SMSBody(a)
	err := worker.Retry(ctx, s.cfg.MaxRetries, s.cfg.RetryDelay, func() error {
		return s.sms.SendSMS(ctx, a.PatientPhone, body)
	})
	s.result(channelSMS, err)
	return err
}

func (s *Service) result(channel string, err error) {
	if err != nil {
		s.record(channel, "failed")
		return
	}
	s.record(channel, "sent")
}

func (s *Service) record(channel, status string) {
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(channel, status).Inc()
	}
}

func EmailBody(a model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Namaste %s,\n\n", a.PatientName)
	fmt.Fprintf(&b, "Your %s consultation with %s (%s) is booked for %s at %s.\n", a.Type, a.DoctorName, a.DoctorSpecialty, a.Date, a.Time)
	fmt.Fprintf(&b, "Payment of ₹%g via %s received. Reference: %s\n", a.Fee, a.PaymentMethod, a.PaymentRef)
	if len(a.Documents) > 0 {
		fmt.Fprintf(&b, "%d document(s) shared with the doctor.\n", len(a.Documents))
	}
	if a.NeedAshaWorker {
		b.WriteString("An ASHA worker will assist you during the consultation.\n")
	}
	b.WriteString("\nThe receipt is attached.\n\nSehatSathi")
	return b.String()
}

func SMSBody(a model.Appointment) string {
	return fmt.Sprintf("SehatSathi: appointment with %s on %s at %s confirmed. Paid Rs.%g. Ref %s", a.DoctorName, a.Date, a.Time, a.Fee, a.ID)
}
