// Package persist adapts the store to the durable key-value medium: image
// slots, corruption recovery, and quota handling.
package persist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// BlobStore is a named-slot view of the durable key-value medium.
// Load returns (nil, nil) when the slot is empty; that is a normal cold start.
type BlobStore interface {
	Load(ctx context.Context, slot string) ([]byte, error)
	Save(ctx context.Context, slot string, data []byte) error
	Clear(ctx context.Context, slot string) error
}

// IsQuotaExceeded reports whether err is the medium refusing a write for
// lack of space (Redis maxmemory).
func IsQuotaExceeded(err error) bool {
	return err != nil && strings.Contains(err.Error(), "OOM")
}

// RedisBlobStore stores slots as plain Redis keys.
type RedisBlobStore struct {
	rdb *redis.Client
}

// NewRedisBlobStore returns a BlobStore backed by the given Redis client.
func NewRedisBlobStore(rdb *redis.Client) *RedisBlobStore {
	return &RedisBlobStore{rdb: rdb}
}

func (s *RedisBlobStore) Load(ctx context.Context, slot string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisBlobStore) Save(ctx context.Context, slot string, data []byte) error {
	return s.rdb.Set(ctx, slot, data, 0).Err()
}

func (s *RedisBlobStore) Clear(ctx context.Context, slot string) error {
	return s.rdb.Del(ctx, slot).Err()
}

// MemoryBlobStore is the degraded in-session mode used when the durable
// medium is unavailable: saves never fail, and nothing survives the process.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryBlobStore returns an empty in-memory BlobStore.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{slots: make(map[string][]byte)}
}

func (s *MemoryBlobStore) Load(_ context.Context, slot string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.slots[slot]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryBlobStore) Save(_ context.Context, slot string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.slots[slot] = buf
	return nil
}

func (s *MemoryBlobStore) Clear(_ context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, slot)
	return nil
}
