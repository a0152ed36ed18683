package correlation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/alert-bridge/internal/domain"
	"github.com/spec-kit/alert-bridge/internal/persistence"
)

// RetentionTTL is the fixed retention window for correlation records. Every
// write refreshes it from the write time, not from first-seen time.
const RetentionTTL = 90 * 24 * time.Hour

const keyPrefix = "corr:"

// Store maps grouping keys to correlation records. Implementations are
// last-write-wins under concurrent writers; callers must tolerate a lost
// update as a degraded outcome, never a crash.
type Store interface {
	// Get returns the record for key, or (nil, nil) when absent.
	Get(ctx context.Context, key domain.GroupingKey) (*domain.CorrelationRecord, error)
	// Put stores the record and refreshes the retention TTL.
	Put(ctx context.Context, key domain.GroupingKey, record domain.CorrelationRecord) error
}

// RedisStore persists correlation records as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps the shared Redis connection.
func NewRedisStore(r *persistence.Redis) (*RedisStore, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("redis client not configured")
	}
	return &RedisStore{client: r.Client}, nil
}

// Get fetches and decodes the record for key.
func (s *RedisStore) Get(ctx context.Context, key domain.GroupingKey) (*domain.CorrelationRecord, error) {
	raw, err := s.client.Get(ctx, keyPrefix+string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("correlation get %s: %w", key, err)
	}
	var record domain.CorrelationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("correlation decode %s: %w", key, err)
	}
	return &record, nil
}

// Put encodes and stores the record, resetting the retention window.
func (s *RedisStore) Put(ctx context.Context, key domain.GroupingKey, record domain.CorrelationRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("correlation encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+string(key), raw, RetentionTTL).Err(); err != nil {
		return fmt.Errorf("correlation put %s: %w", key, err)
	}
	return nil
}

// MemoryStore is an in-process Store used by tests and local runs without
// Redis. TTL handling is omitted.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.GroupingKey]domain.CorrelationRecord
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[domain.GroupingKey]domain.CorrelationRecord)}
}

// Get returns a copy of the stored record, or nil when absent.
func (s *MemoryStore) Get(_ context.Context, key domain.GroupingKey) (*domain.CorrelationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Put stores the record.
func (s *MemoryStore) Put(_ context.Context, key domain.GroupingKey, record domain.CorrelationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record
	return nil
}

// Len reports how many records are held. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
