package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusIdle.Terminal())
	assert.False(t, StatusBuilding.Terminal())
	assert.False(t, StatusUploading.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}

func TestCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusIdle, StatusBuilding, true},
		{StatusBuilding, StatusUploading, true},
		{StatusUploading, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		// Skipping phases forward is allowed.
		{StatusIdle, StatusProcessing, true},
		{StatusBuilding, StatusCompleted, true},
		// Failing is allowed from any non-terminal phase.
		{StatusIdle, StatusFailed, true},
		{StatusProcessing, StatusFailed, true},
		// Same-phase moves fold progress.
		{StatusBuilding, StatusBuilding, true},
		{StatusProcessing, StatusProcessing, true},
		// Backwards moves are not allowed.
		{StatusUploading, StatusBuilding, false},
		{StatusProcessing, StatusIdle, false},
		// Terminal states never move.
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusBuilding, false},
		{StatusCompleted, StatusCompleted, false},
		// Unknown statuses deny.
		{Status("weird"), StatusBuilding, false},
		{StatusIdle, Status("weird"), false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.from.CanAdvanceTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSessionPercentByPhase(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusIdle, 5},
		{StatusBuilding, 25},
		{StatusUploading, 50},
		{StatusProcessing, 75},
		{StatusCompleted, 100},
	}
	for _, tc := range tests {
		sess := &Session{Status: tc.status}
		assert.Equal(t, tc.want, sess.Percent(), string(tc.status))
	}
}

func TestSessionPercentWithTotals(t *testing.T) {
	sess := &Session{
		Status:   StatusProcessing,
		Progress: Progress{RecordsProcessed: 250, TotalRecords: 1000},
	}
	assert.Equal(t, 25, sess.Percent())

	// Over-reporting caps at 100.
	sess.Progress.RecordsProcessed = 1200
	assert.Equal(t, 100, sess.Percent())
}

func TestSessionPercentFailedKeepsNoPhase(t *testing.T) {
	sess := &Session{Status: StatusFailed}
	assert.Equal(t, 0, sess.Percent())

	sess.Progress = Progress{RecordsProcessed: 40, TotalRecords: 80}
	assert.Equal(t, 50, sess.Percent())
}
