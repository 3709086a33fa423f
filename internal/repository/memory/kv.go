package memory

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/sehatsathi/sehatsathi-api/internal/repository"
)

type entry struct {
	value    []byte
	revision int64
}

// KV keeps blobs in process memory. Contents are lost on restart.
type KV struct {
	mu    sync.Mutex
	items *cache.Cache
}

func NewKV() *KV {
	return &KV{items: cache.New(cache.NoExpiration, 0)}
}

func (s *KV) Get(_ context.Context, key string) ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil, 0, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, e.revision, nil
}

func (s *KV) CompareAndSwap(_ context.Context, key string, expected int64, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if e, ok := s.lookup(key); ok {
		current = e.revision
	}
	if current != expected {
		return 0, repository.ErrRevisionMismatch
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	next := current + 1
	s.items.Set(key, entry{value: stored, revision: next}, cache.NoExpiration)
	return next, nil
}

func (s *KV) Ping(context.Context) error {
	return nil
}

// Put overwrites key unconditionally. Used to seed raw blobs.
func (s *KV) Put(key string, value []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next int64 = 1
	if e, ok := s.lookup(key); ok {
		next = e.revision + 1
	}
	s.items.Set(key, entry{value: value, revision: next}, cache.NoExpiration)
	return next
}

func (s *KV) lookup(key string) (entry, bool) {
	v, ok := s.items.Get(key)
	if !ok {
		return entry{}, false
	}
	return v.(entry), true
}
