package migration

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadLimiterAdmitsUpToMax(t *testing.T) {
	limiter := NewUploadLimiter(time.Hour, 3, slog.Default())

	for i := 0; i < 3; i++ {
		ok, wait := limiter.Attempt("acme:abcd")
		assert.True(t, ok, "attempt %d", i+1)
		assert.Zero(t, wait)
	}

	ok, wait := limiter.Attempt("acme:abcd")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Hour)
}

func TestUploadLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewUploadLimiter(time.Hour, 1, slog.Default())

	ok, _ := limiter.Attempt("acme:abcd")
	require.True(t, ok)
	ok, _ = limiter.Attempt("acme:abcd")
	require.False(t, ok)

	// Another tenant, and another credential on the same tenant, are
	// unaffected.
	ok, _ = limiter.Attempt("globe:abcd")
	assert.True(t, ok)
	ok, _ = limiter.Attempt("acme:ffff")
	assert.True(t, ok)
}

func TestUploadLimiterResetsAfterFullWindow(t *testing.T) {
	limiter := NewUploadLimiter(time.Hour, 3, slog.Default())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	for i := 0; i < 4; i++ {
		limiter.Attempt("k")
	}

	// The window is measured from the last attempt, admitted or not.
	now = now.Add(59 * time.Minute)
	ok, _ := limiter.Attempt("k")
	assert.False(t, ok)

	now = now.Add(61 * time.Minute)
	ok, wait := limiter.Attempt("k")
	assert.True(t, ok)
	assert.Zero(t, wait)

	// The reset restores the whole budget, not a single slot.
	ok, _ = limiter.Attempt("k")
	assert.True(t, ok)
	ok, _ = limiter.Attempt("k")
	assert.True(t, ok)
	ok, _ = limiter.Attempt("k")
	assert.False(t, ok)
}

func TestUploadLimiterRejectedAttemptExtendsWindow(t *testing.T) {
	limiter := NewUploadLimiter(time.Hour, 1, slog.Default())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	ok, _ := limiter.Attempt("k")
	require.True(t, ok)

	now = now.Add(30 * time.Minute)
	ok, wait := limiter.Attempt("k")
	require.False(t, ok)
	assert.Equal(t, 30*time.Minute, wait)

	// Hammering keeps the key locked for a full window from each attempt.
	now = now.Add(45 * time.Minute)
	ok, wait = limiter.Attempt("k")
	assert.False(t, ok)
	assert.Equal(t, 15*time.Minute, wait)
}

func TestUploadLimiterSweepOnce(t *testing.T) {
	limiter := NewUploadLimiter(time.Hour, 3, slog.Default())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	limiter.Attempt("stale")
	now = now.Add(30 * time.Minute)
	limiter.Attempt("fresh")

	now = now.Add(45 * time.Minute) // stale is 75m old, fresh 45m
	remaining := limiter.SweepOnce()
	assert.Equal(t, 1, remaining)

	// The swept key starts from a clean budget.
	ok, _ := limiter.Attempt("stale")
	assert.True(t, ok)
}
