package migration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
	"github.com/modl-gg/panel-sub007/internal/shared"
)

// Upload limiter defaults: at most 3 attempts per rolling hour per
// (tenant, credential) key, with stale entries swept every 5 minutes.
const (
	DefaultUploadWindow = time.Hour
	DefaultUploadMax    = 3
	DefaultSweepEvery   = 5 * time.Minute
)

type rateEntry struct {
	lastAttempt  time.Time
	attemptCount int
}

// UploadLimiter throttles migration upload attempts with a sliding window.
// It is independent of, and stacked in front of, the session state machine's
// one-active-session and cooldown rules.
type UploadLimiter struct {
	window time.Duration
	max    int
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*rateEntry
}

// NewUploadLimiter constructs an UploadLimiter. Non-positive window or max
// fall back to the defaults.
func NewUploadLimiter(window time.Duration, max int, logger *slog.Logger) *UploadLimiter {
	if window <= 0 {
		window = DefaultUploadWindow
	}
	if max <= 0 {
		max = DefaultUploadMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadLimiter{
		window:  window,
		max:     max,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*rateEntry),
	}
}

// Attempt records one attempt for the key. It returns whether the attempt is
// admitted and, when rejected, how long to wait before the window reopens.
// The count resets to 1 whenever the window has fully elapsed since the
// previously recorded attempt; every attempt, admitted or not, refreshes the
// attempt timestamp.
func (l *UploadLimiter) Attempt(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		l.entries[key] = &rateEntry{lastAttempt: now, attemptCount: 1}
		return true, 0
	}

	elapsed := now.Sub(entry.lastAttempt)
	if elapsed >= l.window {
		entry.lastAttempt = now
		entry.attemptCount = 1
		return true, 0
	}

	entry.attemptCount++
	entry.lastAttempt = now
	if entry.attemptCount > l.max {
		return false, l.window - elapsed
	}
	return true, 0
}

// Middleware rejects over-limit upload attempts with a 429 carrying
// machine-readable retry metadata.
func (l *UploadLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := shared.ActorFromContext(r.Context())
		if actor == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials")
			return
		}
		key := actor.Tenant + ":" + actor.KeyFingerprint
		ok, wait := l.Attempt(key)
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		retryAfter := int(wait.Seconds() + 0.5)
		if retryAfter < 1 {
			retryAfter = 1
		}
		l.logger.Info("migration upload rate limited",
			slog.String("tenant", actor.Tenant),
			slog.Int("retry_after", retryAfter))
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		httpx.JSON(w, http.StatusTooManyRequests, map[string]any{
			"error":         fmt.Sprintf("too many migration attempts, try again in %s", wait.Round(time.Second)),
			"retryAfter":    retryAfter,
			"nextAttemptAt": l.now().Add(wait).UTC().Format(time.RFC3339),
		})
	})
}

// SweepOnce evicts entries whose window has fully elapsed and returns how
// many remain.
func (l *UploadLimiter) SweepOnce() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.entries {
		if now.Sub(entry.lastAttempt) >= l.window {
			delete(l.entries, key)
		}
	}
	return len(l.entries)
}

// Sweep evicts stale entries on the given interval until the context is
// cancelled. Bounds memory growth of the in-process store.
func (l *UploadLimiter) Sweep(ctx context.Context, every time.Duration, size func(int)) error {
	if every <= 0 {
		every = DefaultSweepEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			remaining := l.SweepOnce()
			if size != nil {
				size(remaining)
			}
		}
	}
}

// SetClock overrides the time source. Tests only.
func (l *UploadLimiter) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}
