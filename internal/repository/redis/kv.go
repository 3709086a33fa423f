package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/sehatsathi/sehatsathi-api/internal/repository"
)

const (
	fieldValue    = "value"
	fieldRevision = "revision"
)

// KV stores each key as a hash holding the blob and its revision.
type KV struct {
	client *redis.Client
}

func NewKV(client *redis.Client) *KV {
	return &KV{client: client}
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, int64, error) {
	return read(ctx, s.client, key)
}

func (s *KV) CompareAndSwap(ctx context.Context, key string, expected int64, value []byte) (int64, error) {
	next := expected + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		_, current, err := read(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return repository.ErrRevisionMismatch
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldValue, value, fieldRevision, next)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, redis.TxFailedErr):
		return 0, repository.ErrRevisionMismatch
	case errors.Is(err, repository.ErrRevisionMismatch):
		return 0, err
	default:
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}
}

func (s *KV) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func read(ctx context.Context, c redis.Cmdable, key string) ([]byte, int64, error) {
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, 0, nil
	}

	rev, err := strconv.ParseInt(fields[fieldRevision], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid revision for %s: %w", key, err)
	}
	return []byte(fields[fieldValue]), rev, nil
}
