package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
	"github.com/sehatsathi/sehatsathi-api/internal/email"
	"github.com/sehatsathi/sehatsathi-api/internal/repository"
	"github.com/sehatsathi/sehatsathi-api/internal/repository/memory"
	"github.com/sehatsathi/sehatsathi-api/internal/repository/postgres"
	redisstore "github.com/sehatsathi/sehatsathi-api/internal/repository/redis"
	"github.com/sehatsathi/sehatsathi-api/internal/service/notification"
	"github.com/sehatsathi/sehatsathi-api/pkg/circuitbreaker"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/messaging"
	redisbroker "github.com/sehatsathi/sehatsathi-api/pkg/messaging/redis"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

// backend is the selected KV store plus the broker its change events go to.
type backend struct {
	kv      repository.KVStore
	broker  messaging.Broker
	closers []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

func redisConfig(cfg config.RedisConfig) redisbroker.Config {
	return redisbroker.Config{
		URL:          cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
}

func dialRedis(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client, err := redisbroker.NewClient(redisConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	b := &backend{}
	var client *goredis.Client

	switch cfg.Store.Backend {
	case "memory":
		b.kv = memory.NewKV()
	case "redis":
		c, err := dialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		client = c
		b.closers = append(b.closers, c.Close)
		b.kv = redisstore.NewKV(c)
	case "postgres":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			b.Close()
			return nil, err
		}
		b.kv = postgres.NewKV(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	broker, closeBroker, err := openBroker(ctx, cfg, client, log)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.broker = broker
	b.closers = append(b.closers, closeBroker)
	return b, nil
}

// openBroker reuses client when the redis store already dialled one.
func openBroker(ctx context.Context, cfg *config.Config, client *goredis.Client, log *logger.Logger) (messaging.Broker, func() error, error) {
	switch cfg.Broker.Driver {
	case "redis":
		if client != nil {
			b := redisbroker.NewFromClient(client, log)
			return b, b.Close, nil
		}
		c, err := dialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		b := redisbroker.NewFromClient(c, log)
		return b, func() error {
			_ = b.Close()
			return c.Close()
		}, nil
	default:
		b := messaging.NewMemoryBroker()
		return b, b.Close, nil
	}
}

// newNotifier returns nil when no confirmation channel is enabled.
func newNotifier(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) *notification.Service {
	n := cfg.Notifications
	if !n.Enabled || (!n.Email.Enabled && !n.SMS.Enabled) {
		return nil
	}

	var mailer email.Service
	if n.Email.Enabled {
		mailer = email.NewSMTPService(n.Email)
	}
	var sms notification.SMSSender
	if n.SMS.Enabled {
		sms = notification.NewTwilioSender(n.SMS)
	}

	return notification.NewService(mailer, sms, notification.Config{Workers: n.Workers}, m, log)
}

func breakerSettings(name string, cfg config.BreakerConfig) circuitbreaker.Settings {
	return circuitbreaker.Settings{
		Name:        name,
		MaxFailures: cfg.MaxFailures,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
	}
}
