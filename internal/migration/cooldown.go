package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCooldown is the mandatory wait after a completed migration before a
// tenant may start another.
const DefaultCooldown = 24 * time.Hour

// CooldownStore records the last successful migration per key and answers
// whether a new start is still blocked.
type CooldownStore interface {
	// Set marks a successful migration for the key, starting the cooldown.
	Set(ctx context.Context, key string) error
	// Check reports whether the key is on cooldown and the remaining wait.
	Check(ctx context.Context, key string) (bool, time.Duration, error)
}

// MemoryCooldown is a process-local CooldownStore.
type MemoryCooldown struct {
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryCooldown constructs a MemoryCooldown. A non-positive period falls
// back to DefaultCooldown.
func NewMemoryCooldown(period time.Duration) *MemoryCooldown {
	if period <= 0 {
		period = DefaultCooldown
	}
	return &MemoryCooldown{
		period:  period,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

// Set marks a successful migration for the key.
func (m *MemoryCooldown) Set(ctx context.Context, key string) error {
	m.mu.Lock()
	m.entries[key] = m.now()
	m.mu.Unlock()
	return nil
}

// Check reports whether the key is on cooldown.
func (m *MemoryCooldown) Check(ctx context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	last, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return false, 0, nil
	}
	elapsed := m.now().Sub(last)
	if elapsed >= m.period {
		return false, 0, nil
	}
	return true, m.period - elapsed, nil
}

// SetClock overrides the time source. Tests only.
func (m *MemoryCooldown) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

var _ CooldownStore = (*MemoryCooldown)(nil)

// RedisCooldown shares cooldown state between processes. The entry lives as a
// key with the cooldown period as TTL, so expiry is handled by Redis itself.
type RedisCooldown struct {
	client *redis.Client
	period time.Duration
}

// NewRedisCooldown constructs a RedisCooldown.
func NewRedisCooldown(client *redis.Client, period time.Duration) *RedisCooldown {
	if period <= 0 {
		period = DefaultCooldown
	}
	return &RedisCooldown{client: client, period: period}
}

func cooldownKey(key string) string { return "migration:cooldown:" + key }

// Set marks a successful migration for the key.
func (r *RedisCooldown) Set(ctx context.Context, key string) error {
	if err := r.client.Set(ctx, cooldownKey(key), time.Now().UTC().Format(time.RFC3339), r.period).Err(); err != nil {
		return fmt.Errorf("migration: set cooldown: %w", err)
	}
	return nil
}

// Check reports whether the key is on cooldown.
func (r *RedisCooldown) Check(ctx context.Context, key string) (bool, time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, cooldownKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, fmt.Errorf("migration: check cooldown: %w", err)
	}
	if ttl <= 0 {
		return false, 0, nil
	}
	return true, ttl, nil
}

var _ CooldownStore = (*RedisCooldown)(nil)
