package migration

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCooldown(t *testing.T) {
	cooldown := NewMemoryCooldown(24 * time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cooldown.SetClock(func() time.Time { return now })
	ctx := context.Background()

	onCooldown, _, err := cooldown.Check(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, onCooldown)

	require.NoError(t, cooldown.Set(ctx, "acme"))

	onCooldown, remaining, err := cooldown.Check(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, onCooldown)
	assert.Equal(t, 24*time.Hour, remaining)

	now = now.Add(23 * time.Hour)
	onCooldown, remaining, err = cooldown.Check(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, onCooldown)
	assert.Equal(t, time.Hour, remaining)

	now = now.Add(time.Hour)
	onCooldown, _, err = cooldown.Check(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, onCooldown)
}

func TestMemoryCooldownKeysAreIndependent(t *testing.T) {
	cooldown := NewMemoryCooldown(24 * time.Hour)
	ctx := context.Background()

	require.NoError(t, cooldown.Set(ctx, "acme"))

	onCooldown, _, err := cooldown.Check(ctx, "globe")
	require.NoError(t, err)
	assert.False(t, onCooldown)
}

func TestRedisCooldown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cooldown := NewRedisCooldown(client, 24*time.Hour)
	ctx := context.Background()

	onCooldown, _, err := cooldown.Check(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, onCooldown)

	require.NoError(t, cooldown.Set(ctx, "acme"))

	onCooldown, remaining, err := cooldown.Check(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, onCooldown)
	assert.InDelta(t, (24 * time.Hour).Seconds(), remaining.Seconds(), 5)

	// Redis expiry clears the cooldown.
	mr.FastForward(25 * time.Hour)
	onCooldown, _, err = cooldown.Check(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, onCooldown)
}
