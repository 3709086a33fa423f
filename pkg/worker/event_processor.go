package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/messaging"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

// Handler processes one broker message. Returning an error wrapped with
// Permanent skips the remaining retries.
type Handler func(ctx context.Context, payload []byte) error

type EventProcessorConfig struct {
	Channel       string
	Workers       int
	RetryAttempts int
	RetryDelay    time.Duration
}

// EventProcessor fans messages from one broker channel out to a fixed
// number of workers.
type EventProcessor struct {
	broker  messaging.Broker
	handler Handler
	config  EventProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewEventProcessor(
	broker messaging.Broker,
	handler Handler,
	config EventProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *EventProcessor {
	if config.Channel == "" {
		panic("Channel must be set")
	}
	if config.Workers <= 0 {
		panic("Workers must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &EventProcessor{
		broker:  broker,
		handler: handler,
		config:  config,
		logger:  logger.WithFields(map[string]interface{}{"channel": config.Channel}),
		metrics: metrics,
	}
}

// Start blocks until ctx ends or the broker closes the subscription.
func (p *EventProcessor) Start(ctx context.Context) error {
	msgs, err := p.broker.Subscribe(ctx, p.config.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", p.config.Channel, err)
	}

	p.logger.Info("Starting event processor", "workers", p.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range msgs {
				p.processEvent(ctx, msg)
			}
		}()
	}
	wg.Wait()

	p.logger.Info("Shutting down event processor")
	return ctx.Err()
}

func (p *EventProcessor) processEvent(ctx context.Context, payload []byte) {
	timer := prometheus.NewTimer(p.metrics.EventLatency.WithLabelValues(p.config.Channel))
	defer timer.ObserveDuration()

	attempt := 0
	err := Retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		if attempt > 0 {
			p.metrics.EventRetries.WithLabelValues(p.config.Channel).Inc()
		}
		attempt++
		return p.handler(ctx, payload)
	})

	if err != nil {
		p.metrics.EventsProcessed.WithLabelValues(p.config.Channel, "failed").Inc()
		p.logger.Error(err, "Failed to process event", "attempts", attempt)
		return
	}
	p.metrics.EventsProcessed.WithLabelValues(p.config.Channel, "processed").Inc()
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs fn up to attempts times with a fixed delay between tries.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)
	err := backoff.Retry(fn, policy)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
