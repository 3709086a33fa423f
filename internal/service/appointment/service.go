package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/internal/repository"
	"github.com/sehatsathi/sehatsathi-api/internal/service/audit"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrInvalidTransition = apperrors.Conflict("appointment cannot move to that status", nil)
	ErrNotPaid           = apperrors.Unprocessable("receipts are only issued for paid appointments", nil)
)

// Messages shown after a doctor acts on an appointment.
const (
	MessageConfirmed = "Appointment Confirmed! / अपॉइंटमेंट पुष्टि की गई!"
	MessageCancelled = "Appointment Cancelled / अपॉइंटमेंट रद्द किया गया"
	MessageCompleted = "Consultation Completed / परामर्श पूर्ण"
)

type Store interface {
	ReadAll(ctx context.Context) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus, guards ...repository.StatusGuard) (*model.Appointment, error)
	SeedIfEmpty(ctx context.Context, seed []model.Appointment) (bool, error)
}

type Auditor interface {
	Log(ctx context.Context, action, entityType, entityID string, opts *audit.LogOptions)
}

type Result struct {
	Appointment *model.Appointment `json:"appointment"`
	Message     string             `json:"message"`
}

type Service struct {
	store   Store
	watcher *Watcher
	auditor Auditor
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(store Store, watcher *Watcher, auditor Auditor, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:   store,
		watcher: watcher,
		auditor: auditor,
		logger:  log.WithFields(map[string]interface{}{"component": "appointments"}),
		now:     time.Now,
	}
}

// List returns the doctor view.
func (s *Service) List() View {
	return s.watcher.Current()
}

// Stream forwards watcher snapshots. Call the returned func when done.
func (s *Service) Stream() (<-chan View, func()) {
	return s.watcher.Subscribe()
}

// Stats summarises the current view.
func (s *Service) Stats() model.DoctorStats {
	return Stats(s.watcher.Current().Appointments, s.now())
}

// All reads the stored appointments directly, without defaults.
func (s *Service) All(ctx context.Context) ([]model.Appointment, error) {
	return s.store.ReadAll(ctx)
}

// Get finds id in the store, falling back to the default view entries.
func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	list, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		list = s.watcher.Current().Appointments
	}
	for i := range list {
		if list[i].ID == id {
			a := list[i].Clone()
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
}

func (s *Service) Accept(ctx context.Context, actor model.User, id string) (*Result, error) {
	return s.transition(ctx, actor, id, model.AppointmentStatusPending, model.AppointmentStatusConfirmed, audit.ActionAppointmentAccepted, MessageConfirmed)
}

func (s *Service) Reject(ctx context.Context, actor model.User, id string) (*Result, error) {
	return s.transition(ctx, actor, id, model.AppointmentStatusPending, model.AppointmentStatusCancelled, audit.ActionAppointmentRejected, MessageCancelled)
}

func (s *Service) Complete(ctx context.Context, actor model.User, id string) (*Result, error) {
	return s.transition(ctx, actor, id, model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, audit.ActionAppointmentCompleted, MessageCompleted)
}

func (s *Service) transition(ctx context.Context, actor model.User, id string, from, to model.AppointmentStatus, action, message string) (*Result, error) {
	if err := s.seedDefaults(ctx, actor, id); err != nil {
		return nil, err
	}

	guard := func(current model.Appointment) error {
		if current.Status != from {
			return fmt.Errorf("%s is %s: %w", id, current.Status, ErrInvalidTransition)
		}
		return nil
	}

	updated, err := s.store.UpdateStatus(ctx, id, to, guard)
	if err != nil {
		return nil, err
	}

	if err := s.watcher.Refresh(ctx, TriggerWrite); err != nil {
		s.logger.WithContext(ctx).Warn("view refresh after write failed", "error", err.Error())
	}
	s.audit(ctx, actor, action, id, map[string]string{"from": string(from), "to": string(to)})
	s.logger.WithContext(ctx).Info("appointment status changed", "appointment_id", id, "from", string(from), "to", string(to))

	return &Result{Appointment: updated, Message: message}, nil
}

// seedDefaults persists the default view once a doctor acts on one of its
// entries, so the change survives the next reload.
func (s *Service) seedDefaults(ctx context.Context, actor model.User, id string) error {
	view := s.watcher.Current()
	if !view.Defaults || !contains(view.Appointments, id) {
		return nil
	}

	seeded, err := s.store.SeedIfEmpty(ctx, view.Appointments)
	if err != nil {
		return fmt.Errorf("failed to persist default appointments: %w", err)
	}
	if seeded {
		s.audit(ctx, actor, audit.ActionAppointmentsSeeded, "", map[string]int{"count": len(view.Appointments)})
	}
	return nil
}

func (s *Service) audit(ctx context.Context, actor model.User, action, id string, changes interface{}) {
	if s.auditor == nil {
		return
	}
	s.auditor.Log(ctx, action, "appointment", id, &audit.LogOptions{
		Actor:   actor.Name,
		Role:    string(actor.Role),
		Changes: changes,
	})
}

func contains(list []model.Appointment, id string) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}
