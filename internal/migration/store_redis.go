package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionRetention = 7 * 24 * time.Hour

// RedisStore shares migration sessions between the panel and worker
// processes. Sessions are stored as JSON values.
type RedisStore struct {
	client *redis.Client
	cap    int
}

// NewRedisStore constructs a RedisStore keeping up to historyCap terminal
// sessions per tenant.
func NewRedisStore(client *redis.Client, historyCap int) *RedisStore {
	if historyCap <= 0 {
		historyCap = 10
	}
	return &RedisStore{client: client, cap: historyCap}
}

func activeKey(tenant string) string  { return "migration:active:" + tenant }
func sessionKey(id string) string     { return "migration:session:" + id }
func historyKey(tenant string) string { return "migration:history:" + tenant }

// Active returns the tenant's non-terminal session, or nil.
func (s *RedisStore) Active(ctx context.Context, tenant string) (*Session, error) {
	id, err := s.client.Get(ctx, activeKey(tenant)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("migration: active lookup: %w", err)
	}
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return sess, err
}

// Get fetches a session by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("migration: session lookup: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("migration: decode session: %w", err)
	}
	return &sess, nil
}

// Put upserts the active session for its tenant.
func (s *RedisStore) Put(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("migration: encode session: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), raw, sessionRetention)
	pipe.Set(ctx, activeKey(sess.Tenant), sess.ID, sessionRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("migration: store session: %w", err)
	}
	return nil
}

// Finalize records a terminal session into history and clears the active slot.
func (s *RedisStore) Finalize(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("migration: encode session: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), raw, sessionRetention)
	pipe.Del(ctx, activeKey(sess.Tenant))
	pipe.LPush(ctx, historyKey(sess.Tenant), raw)
	pipe.LTrim(ctx, historyKey(sess.Tenant), 0, int64(s.cap-1))
	pipe.Expire(ctx, historyKey(sess.Tenant), sessionRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("migration: finalize session: %w", err)
	}
	return nil
}

// History returns up to limit most recent terminal sessions, newest first.
func (s *RedisStore) History(ctx context.Context, tenant string, limit int) ([]Session, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}
	rows, err := s.client.LRange(ctx, historyKey(tenant), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("migration: history lookup: %w", err)
	}
	out := make([]Session, 0, len(rows))
	for _, raw := range rows {
		var sess Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("migration: decode history entry: %w", err)
		}
		out = append(out, sess)
	}
	return out, nil
}

var _ SessionStore = (*RedisStore)(nil)
