package migration

import (
	"errors"
	"fmt"
	"time"
)

// Status is the phase of an import session.
type Status string

// Session phases. A session moves forward through the json/upload/processing
// phases and becomes terminal exactly once.
const (
	StatusIdle       Status = "idle"
	StatusBuilding   Status = "building_json"
	StatusUploading  Status = "uploading_json"
	StatusProcessing Status = "processing_data"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status ends a session.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var phaseRank = map[Status]int{
	StatusIdle:       0,
	StatusBuilding:   1,
	StatusUploading:  2,
	StatusProcessing: 3,
	StatusCompleted:  4,
}

// phasePercent is the coarse progress indicator used when the total record
// count is unknown.
var phasePercent = map[Status]int{
	StatusIdle:       5,
	StatusBuilding:   25,
	StatusUploading:  50,
	StatusProcessing: 75,
	StatusCompleted:  100,
}

// CanAdvanceTo reports whether a session in status s may move to next.
// Failing is allowed from any non-terminal phase. A same-phase move is a
// progress-folding update from the worker; only strictly backwards moves are
// rejected.
func (s Status) CanAdvanceTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	from, ok := phaseRank[s]
	if !ok {
		return false
	}
	to, ok := phaseRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Progress tracks import counters reported by the ingestion worker.
type Progress struct {
	RecordsProcessed int    `json:"recordsProcessed"`
	RecordsSkipped   int    `json:"recordsSkipped"`
	TotalRecords     int    `json:"totalRecords,omitempty"`
	Message          string `json:"message,omitempty"`
}

// Session is one in-flight or finished data-import job for a tenant.
type Session struct {
	ID          string     `json:"id"`
	Tenant      string     `json:"tenant"`
	Type        string     `json:"type"`
	Status      Status     `json:"status"`
	Progress    Progress   `json:"progress"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Percent derives the progress percentage: exact when the total is known,
// otherwise the coarse per-phase indicator. A failed session without a known
// total reports 0.
func (s *Session) Percent() int {
	if s.Progress.TotalRecords > 0 {
		pct := s.Progress.RecordsProcessed * 100 / s.Progress.TotalRecords
		if pct > 100 {
			pct = 100
		}
		return pct
	}
	if pct, ok := phasePercent[s.Status]; ok {
		return pct
	}
	return 0
}

// ProgressDelta carries incremental progress from the worker.
type ProgressDelta struct {
	ProcessedDelta int
	SkippedDelta   int
	TotalRecords   int // zero means unchanged
	Message        string
}

// CancelReason marks sessions failed through the cancel operation.
const CancelReason = "cancelled by operator"

// CooldownError rejects a start attempt inside the post-success cooldown
// window, carrying the remaining wait for retry metadata.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("migration on cooldown: %s remaining", e.Remaining.Round(time.Second))
}

// Is matches ErrOnCooldown so callers can branch with errors.Is.
func (e *CooldownError) Is(target error) bool { return target == ErrOnCooldown }

var (
	// ErrAlreadyActive indicates a non-terminal session exists for the tenant.
	ErrAlreadyActive = errors.New("migration already active")
	// ErrOnCooldown indicates the tenant completed a migration too recently.
	ErrOnCooldown = errors.New("migration on cooldown")
	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("migration session not found")
	// ErrSessionTerminal indicates the session already finished.
	ErrSessionTerminal = errors.New("migration session already terminal")
	// ErrInvalidTransition indicates a backwards or unknown phase move.
	ErrInvalidTransition = errors.New("invalid migration status transition")
)
