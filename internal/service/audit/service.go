package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

// Audit actions written for appointment mutations.
const (
	ActionAppointmentBooked    = "appointment.booked"
	ActionAppointmentAccepted  = "appointment.accepted"
	ActionAppointmentRejected  = "appointment.rejected"
	ActionAppointmentCompleted = "appointment.completed"
	ActionAppointmentsSeeded   = "appointment.seeded"
)

type LogOptions struct {
	Actor     string
	Role      string
	Changes   interface{}
	Metadata  interface{}
	IPAddress string
}

// Service writes one JSON line per audited action.
type Service struct {
	zl *zap.Logger
}

// NewService builds the zap trail from cfg. A disabled trail discards
// entries.
func NewService(cfg config.AuditConfig) (*Service, error) {
	if !cfg.Enabled {
		return NewFromLogger(zap.NewNop()), nil
	}

	path := cfg.Path
	if path == "" {
		path = "stdout"
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         "json",
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			MessageKey:     "action",
			LevelKey:       zapcore.OmitKey,
			NameKey:        "trail",
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			LineEnding:     zapcore.DefaultLineEnding,
		},
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to open audit trail: %w", err)
	}
	return NewFromLogger(zl.Named("audit")), nil
}

func NewFromLogger(zl *zap.Logger) *Service {
	return &Service{zl: zl}
}

// Log records action on the entity. Request ids travel in ctx.
func (s *Service) Log(ctx context.Context, action, entityType, entityID string, opts *LogOptions) {
	if opts == nil {
		opts = &LogOptions{}
	}

	fields := []zap.Field{
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.Time("occurred_at", time.Now().UTC()),
	}
	if rid := logger.RequestIDFromContext(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if opts.Actor != "" {
		fields = append(fields, zap.String("actor", opts.Actor))
	}
	if opts.Role != "" {
		fields = append(fields, zap.String("role", opts.Role))
	}
	if opts.IPAddress != "" {
		fields = append(fields, zap.String("ip_address", opts.IPAddress))
	}
	if opts.Changes != nil {
		fields = append(fields, zap.Any("changes", opts.Changes))
	}
	if opts.Metadata != nil {
		fields = append(fields, zap.Any("metadata", opts.Metadata))
	}

	s.zl.Info(action, fields...)
}

// Sync flushes buffered entries.
func (s *Service) Sync() error {
	return s.zl.Sync()
}
