package migration

import (
	"context"
	"sync"
)

// SessionStore persists migration sessions. Implementations keep at most one
// active (non-terminal) session per tenant; terminal sessions move into a
// capped per-tenant history.
type SessionStore interface {
	// Active returns the tenant's non-terminal session, or nil when none.
	Active(ctx context.Context, tenant string) (*Session, error)
	// Get fetches any known session by ID. ErrSessionNotFound when absent.
	Get(ctx context.Context, id string) (*Session, error)
	// Put upserts the active session for its tenant.
	Put(ctx context.Context, sess *Session) error
	// Finalize records a terminal session into history and clears the
	// tenant's active slot.
	Finalize(ctx context.Context, sess *Session) error
	// History returns up to limit most recent terminal sessions.
	History(ctx context.Context, tenant string, limit int) ([]Session, error)
}

// MemoryStore is a process-local SessionStore. Used in tests and
// single-process deployments.
type MemoryStore struct {
	mu      sync.Mutex
	active  map[string]*Session  // tenant -> session
	byID    map[string]*Session  // session ID -> session
	history map[string][]Session // tenant -> newest first
	cap     int
}

// NewMemoryStore constructs a MemoryStore keeping up to historyCap terminal
// sessions per tenant.
func NewMemoryStore(historyCap int) *MemoryStore {
	if historyCap <= 0 {
		historyCap = 10
	}
	return &MemoryStore{
		active:  make(map[string]*Session),
		byID:    make(map[string]*Session),
		history: make(map[string][]Session),
		cap:     historyCap,
	}
}

// Active returns the tenant's non-terminal session, or nil.
func (m *MemoryStore) Active(ctx context.Context, tenant string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.active[tenant]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// Get fetches a session by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

// Put upserts the active session for its tenant.
func (m *MemoryStore) Put(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	m.active[sess.Tenant] = &cp
	m.byID[sess.ID] = &cp
	return nil
}

// Finalize moves a terminal session into history.
func (m *MemoryStore) Finalize(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	delete(m.active, sess.Tenant)
	m.byID[sess.ID] = &cp
	hist := append([]Session{cp}, m.history[sess.Tenant]...)
	if len(hist) > m.cap {
		for _, old := range hist[m.cap:] {
			delete(m.byID, old.ID)
		}
		hist = hist[:m.cap]
	}
	m.history[sess.Tenant] = hist
	return nil
}

// History returns up to limit most recent terminal sessions, newest first.
func (m *MemoryStore) History(ctx context.Context, tenant string, limit int) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hist := m.history[tenant]
	if limit > 0 && len(hist) > limit {
		hist = hist[:limit]
	}
	out := make([]Session, len(hist))
	copy(out, hist)
	return out, nil
}

var _ SessionStore = (*MemoryStore)(nil)
