package emergency

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/pkg/circuitbreaker"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
)

var ErrDispatchUnavailable = apperrors.Unavailable("emergency dispatch unavailable, dial the number directly", nil)

type RequestKind string

const (
	KindCall     RequestKind = "call"
	KindLocation RequestKind = "location"
)

type DispatchRequest struct {
	Kind     RequestKind
	Service  string
	Number   string
	Caller   model.User
	Location *model.Location
}

// Dispatcher hands a request to the emergency services and returns its
// reference.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) (string, error)
}

// Forwarder stands in for the telephony integration.
type Forwarder func(ctx context.Context, req DispatchRequest) error

func accept(context.Context, DispatchRequest) error { return nil }

// StubDispatcher accepts every request unless its forwarder fails. The
// breaker stops hammering a failing forwarder.
type StubDispatcher struct {
	cb      *circuitbreaker.CircuitBreaker
	forward Forwarder
	logger  *logger.Logger
}

func NewStubDispatcher(settings circuitbreaker.Settings, forward Forwarder, log *logger.Logger) *StubDispatcher {
	if forward == nil {
		forward = accept
	}
	if log == nil {
		log = logger.Nop()
	}
	if settings.Name == "" {
		settings.Name = "emergency-dispatch"
	}
	settings.OnStateChange = func(name, from, to string) {
		log.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	}
	return &StubDispatcher{
		cb:      circuitbreaker.NewCircuitBreaker(settings),
		forward: forward,
		logger:  log,
	}
}

func (d *StubDispatcher) Dispatch(ctx context.Context, req DispatchRequest) (string, error) {
	err := d.cb.Execute(func() error {
		return d.forward(ctx, req)
	})
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "", ErrDispatchUnavailable
	case err != nil:
		d.logger.WithContext(ctx).Error(err, "emergency dispatch failed", "kind", string(req.Kind), "number", req.Number)
		return "", fmt.Errorf("%w: %v", ErrDispatchUnavailable, err)
	}
	return "sos_" + uuid.NewString(), nil
}

func (d *StubDispatcher) State() string {
	return d.cb.State()
}
