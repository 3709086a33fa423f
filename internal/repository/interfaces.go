package repository

import (
	"context"
	"errors"
)

// ErrRevisionMismatch is returned by CompareAndSwap when the stored
// revision is not the expected one.
var ErrRevisionMismatch = errors.New("revision mismatch")

// KVStore is a single-value-per-key blob store with optimistic
// concurrency. Revision 0 means the key does not exist.
type KVStore interface {
	// Get returns a nil value and revision 0 for an absent key.
	Get(ctx context.Context, key string) ([]byte, int64, error)
	// CompareAndSwap writes value when the current revision equals
	// expected and returns the new revision.
	CompareAndSwap(ctx context.Context, key string, expected int64, value []byte) (int64, error)
	Ping(ctx context.Context) error
}
