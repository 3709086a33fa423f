package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/pkg/circuitbreaker"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

const Currency = "INR"

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDeclined Outcome = "declined"
)

var (
	ErrDeclined    = apperrors.Unprocessable("payment was declined", nil)
	ErrUnavailable = apperrors.Unavailable("payment service unavailable, try again shortly", nil)
)

type Request struct {
	Reference string
	Amount    float64
	Method    model.PaymentMethod
	Payer     string
}

type Result struct {
	Outcome       Outcome   `json:"outcome"`
	TransactionID string    `json:"transaction_id"`
	Message       string    `json:"message"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Gateway authorizes a consultation fee.
type Gateway interface {
	Authorize(ctx context.Context, req Request) (*Result, error)
}

// Decider stands in for the processor. A returned error counts as a
// processor failure; a decline does not.
type Decider func(ctx context.Context, req Request) (Outcome, error)

// ApproveValid approves any positive amount paid with a known method.
func ApproveValid(_ context.Context, req Request) (Outcome, error) {
	if req.Amount <= 0 || !req.Method.Valid() {
		return OutcomeDeclined, nil
	}
	return OutcomeApproved, nil
}

// StubGateway settles nothing. It exists so the booking flow has an
// explicit outcome to branch on.
type StubGateway struct {
	cb      *circuitbreaker.CircuitBreaker
	decide  Decider
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewStubGateway(settings circuitbreaker.Settings, decide Decider, m *metrics.Metrics, log *logger.Logger) *StubGateway {
	if decide == nil {
		decide = ApproveValid
	}
	if log == nil {
		log = logger.Nop()
	}
	if settings.Name == "" {
		settings.Name = "payment-gateway"
	}
	settings.OnStateChange = func(name, from, to string) {
		log.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	}

	return &StubGateway{
		cb:      circuitbreaker.NewCircuitBreaker(settings),
		decide:  decide,
		metrics: m,
		logger:  log,
	}
}

func (g *StubGateway) Authorize(ctx context.Context, req Request) (*Result, error) {
	var outcome Outcome
	err := g.cb.Execute(func() error {
		var err error
		outcome, err = g.decide(ctx, req)
		return err
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		g.record(req.Method, "unavailable")
		return nil, ErrUnavailable
	case err != nil:
		g.record(req.Method, "error")
		g.logger.WithContext(ctx).Error(err, "payment processor failed", "reference", req.Reference)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	g.record(req.Method, string(outcome))
	result := &Result{
		Outcome:     outcome,
		ProcessedAt: time.Now().UTC(),
	}
	if outcome != OutcomeApproved {
		result.Message = fmt.Sprintf("Payment of ₹%g via %s was declined", req.Amount, req.Method)
		return result, fmt.Errorf("%s: %w", req.Reference, ErrDeclined)
	}

	result.TransactionID = "pay_" + uuid.NewString()
	result.Message = fmt.Sprintf("Payment of ₹%g via %s successful", req.Amount, req.Method)
	return result, nil
}

// State exposes the breaker state for health reporting.
func (g *StubGateway) State() string {
	return g.cb.State()
}

func (g *StubGateway) record(method model.PaymentMethod, outcome string) {
	if g.metrics != nil {
		g.metrics.PaymentOutcomes.WithLabelValues(string(method), outcome).Inc()
	}
}
