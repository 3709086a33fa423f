package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/messaging"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

// SchemaVersion is written in every envelope. A bare JSON array is read
// as version 0.
const SchemaVersion = 1

var (
	ErrDuplicateID       = apperrors.Conflict("appointment id already exists", nil)
	ErrNotFound          = apperrors.NotFound("appointment", nil)
	ErrConflict          = apperrors.Conflict("appointment store changed concurrently, retry", nil)
	ErrQuotaExceeded     = apperrors.TooLarge("appointment store quota exceeded", nil)
	ErrInvalidStatus     = apperrors.BadRequest("invalid appointment status", nil)
	ErrStoreUnavailable  = apperrors.Unavailable("appointment store unavailable", nil)
	ErrUnsupportedSchema = apperrors.Unavailable("appointment store written by a newer schema version", nil)
)

// errNoop aborts a mutation without writing.
var errNoop = errors.New("no change")

type envelope struct {
	Version      int                 `json:"version"`
	Appointments []model.Appointment `json:"appointments"`
}

type AppointmentStoreConfig struct {
	Key         string
	MaxBytes    int
	CASAttempts int
	RetryDelay  time.Duration
	Channel     string
}

// StatusGuard vets the current record before UpdateStatus writes.
type StatusGuard func(current model.Appointment) error

// AppointmentStore keeps every appointment in one blob under a single key.
// Writes are read-modify-write cycles guarded by the blob revision.
type AppointmentStore struct {
	kv        KVStore
	publisher messaging.Publisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
	cfg       AppointmentStoreConfig
	revision  atomic.Int64
}

func NewAppointmentStore(kv KVStore, publisher messaging.Publisher, log *logger.Logger, m *metrics.Metrics, cfg AppointmentStoreConfig) *AppointmentStore {
	if cfg.Key == "" {
		cfg.Key = "appointments"
	}
	if cfg.Channel == "" {
		cfg.Channel = "appointments"
	}
	if cfg.CASAttempts < 1 {
		cfg.CASAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 20 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AppointmentStore{
		kv:        kv,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"component": "appointment_store", "key": cfg.Key}),
		metrics:   m,
		cfg:       cfg,
	}
}

// Channel is where change events are published.
func (s *AppointmentStore) Channel() string {
	return s.cfg.Channel
}

// Revision is the last revision this store observed.
func (s *AppointmentStore) Revision() int64 {
	return s.revision.Load()
}

func (s *AppointmentStore) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// ReadAll reads an absent or malformed blob as an empty list. Backend
// failures and blobs from a newer schema version are returned as errors.
func (s *AppointmentStore) ReadAll(ctx context.Context) ([]model.Appointment, error) {
	list, _, err := s.Snapshot(ctx)
	return list, err
}

// Snapshot is ReadAll plus the revision the list was read at.
func (s *AppointmentStore) Snapshot(ctx context.Context) ([]model.Appointment, int64, error) {
	start := time.Now()
	list, rev, err := s.load(ctx)
	s.observe("read_all", start, err)
	if err != nil {
		return nil, 0, err
	}
	return list, rev, nil
}

func (s *AppointmentStore) Append(ctx context.Context, appointment model.Appointment) error {
	if appointment.ID == "" {
		return apperrors.BadRequest("appointment id is required", nil)
	}

	start := time.Now()
	rev, err := s.mutate(ctx, func(list []model.Appointment) ([]model.Appointment, error) {
		for _, a := range list {
			if a.ID == appointment.ID {
				return nil, fmt.Errorf("%s: %w", appointment.ID, ErrDuplicateID)
			}
		}
		return append(list, appointment.Clone()), nil
	})
	s.observe("append", start, err)
	if err != nil {
		return err
	}

	created := appointment.Clone()
	s.publish(ctx, model.AppointmentCreated, &created, rev)
	return nil
}

// UpdateStatus sets the status of the record with id. Guards run against
// the freshest copy inside the write cycle.
func (s *AppointmentStore) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus, guards ...StatusGuard) (*model.Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	var updated model.Appointment
	start := time.Now()
	rev, err := s.mutate(ctx, func(list []model.Appointment) ([]model.Appointment, error) {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			for _, guard := range guards {
				if err := guard(list[i]); err != nil {
					return nil, err
				}
			}
			list[i].Status = status
			updated = list[i].Clone()
			return list, nil
		}
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	})
	s.observe("update_status", start, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.AppointmentStatusChanged, &updated, rev)
	return &updated, nil
}

// SeedIfEmpty writes seed when the store holds no appointments. It reports
// whether a write happened.
func (s *AppointmentStore) SeedIfEmpty(ctx context.Context, seed []model.Appointment) (bool, error) {
	start := time.Now()
	rev, err := s.mutate(ctx, func(list []model.Appointment) ([]model.Appointment, error) {
		if len(list) > 0 {
			return nil, errNoop
		}
		return model.CloneAppointments(seed), nil
	})
	s.observe("seed", start, err)
	if errors.Is(err, errNoop) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.publish(ctx, model.AppointmentsReplaced, nil, rev)
	return true, nil
}

// Update applies fn to the current list and writes the result.
func (s *AppointmentStore) Update(ctx context.Context, fn func([]model.Appointment) ([]model.Appointment, error)) error {
	start := time.Now()
	rev, err := s.mutate(ctx, fn)
	s.observe("update", start, err)
	if errors.Is(err, errNoop) {
		return nil
	}
	if err != nil {
		return err
	}

	s.publish(ctx, model.AppointmentsReplaced, nil, rev)
	return nil
}

func (s *AppointmentStore) load(ctx context.Context) ([]model.Appointment, int64, error) {
	raw, rev, err := s.kv.Get(ctx, s.cfg.Key)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.revision.Store(rev)

	list, err := decode(raw)
	if errors.Is(err, ErrUnsupportedSchema) {
		s.logger.Error(err, "refusing to read appointment blob", "revision", rev)
		return nil, 0, err
	}
	if err != nil {
		s.logger.Warn("discarding malformed appointment blob", "revision", rev, "bytes", len(raw), "error", err.Error())
		if s.metrics != nil {
			s.metrics.StoreCorruptReads.Inc()
		}
		return []model.Appointment{}, rev, nil
	}
	return list, rev, nil
}

func (s *AppointmentStore) mutate(ctx context.Context, fn func([]model.Appointment) ([]model.Appointment, error)) (int64, error) {
	var written int64

	operation := func() error {
		list, rev, err := s.load(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		next, err := fn(model.CloneAppointments(list))
		if err != nil {
			return backoff.Permanent(err)
		}

		data, err := encode(next)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to encode appointments: %w", err))
		}
		if s.cfg.MaxBytes > 0 && len(data) > s.cfg.MaxBytes {
			return backoff.Permanent(fmt.Errorf("%d bytes over %d: %w", len(data), s.cfg.MaxBytes, ErrQuotaExceeded))
		}

		newRev, err := s.kv.CompareAndSwap(ctx, s.cfg.Key, rev, data)
		if errors.Is(err, ErrRevisionMismatch) {
			if s.metrics != nil {
				s.metrics.StoreConflicts.Inc()
			}
			return err
		}
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		}

		written = newRev
		s.revision.Store(newRev)
		if s.metrics != nil {
			s.metrics.StoreSize.Set(float64(len(next)))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryDelay
	policy.MaxInterval = 20 * s.cfg.RetryDelay
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.CASAttempts-1)), ctx)

	if err := backoff.Retry(operation, b); err != nil {
		if errors.Is(err, ErrRevisionMismatch) {
			s.logger.Warn("giving up after revision conflicts", "attempts", s.cfg.CASAttempts)
			return 0, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return 0, err
	}
	return written, nil
}

func (s *AppointmentStore) publish(ctx context.Context, eventType model.AppointmentEventType, appointment *model.Appointment, rev int64) {
	if s.publisher == nil {
		return
	}
	evt := model.AppointmentEvent{
		Type:        eventType,
		Appointment: appointment,
		Revision:    rev,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, s.cfg.Channel, evt); err != nil {
		s.logger.Error(err, "failed to publish appointment event", "type", string(eventType), "revision", rev)
	}
}

func (s *AppointmentStore) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil && !errors.Is(err, errNoop) {
		status = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(operation, status).Inc()
	s.metrics.StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func decode(raw []byte) ([]model.Appointment, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []model.Appointment{}, nil
	}

	if raw[0] == '[' {
		var list []model.Appointment
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return nonNil(list), nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedSchema, env.Version)
	}
	return nonNil(env.Appointments), nil
}

func encode(list []model.Appointment) ([]byte, error) {
	return json.Marshal(envelope{Version: SchemaVersion, Appointments: nonNil(list)})
}

func nonNil(list []model.Appointment) []model.Appointment {
	if list == nil {
		return []model.Appointment{}
	}
	return list
}
