package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency key lifecycle states stored per charge.
const (
	stateInProgress = "IN_PROGRESS"
	stateCompleted  = "COMPLETED"

	// A short in-progress expiry prevents deadlocks if the process dies
	// mid-charge; completed keys live long enough to absorb client resubmits.
	inProgressExpiry = 30 * time.Second
	completedExpiry  = 24 * time.Hour
)

// IdempotencyStore dedupes charge submissions by idempotency key.
// Begin reports true when the key is already in flight or completed;
// Complete marks it terminal so later resubmits are rejected.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (duplicate bool, err error)
	Complete(ctx context.Context, key string) error
}

// RedisStore implements IdempotencyStore on Redis. SET NX makes the
// check-and-claim atomic across concurrent checkouts and processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore from an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(key string) string {
	return fmt.Sprintf("charge:%s", key)
}

// Begin implements IdempotencyStore.
func (r *RedisStore) Begin(ctx context.Context, key string) (bool, error) {
	set, err := r.client.SetNX(ctx, redisKey(key), stateInProgress, inProgressExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: redis SETNX: %w", err)
	}
	return !set, nil
}

// Complete implements IdempotencyStore.
func (r *RedisStore) Complete(ctx context.Context, key string) error {
	if err := r.client.Set(ctx, redisKey(key), stateCompleted, completedExpiry).Err(); err != nil {
		return fmt.Errorf("idempotency: redis SET: %w", err)
	}
	return nil
}

// MemoryStore is the in-process IdempotencyStore used in tests and
// single-node deployments without Redis.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]string)}
}

// Begin implements IdempotencyStore.
func (m *MemoryStore) Begin(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[key]; ok {
		return true, nil
	}
	m.states[key] = stateInProgress
	return false, nil
}

// Complete implements IdempotencyStore.
func (m *MemoryStore) Complete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = stateCompleted
	return nil
}

// Forget drops a key, letting tests simulate expiry.
func (m *MemoryStore) Forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
}
