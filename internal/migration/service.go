package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ImportEnqueuer submits the background import job for a freshly started
// session. Implemented by the jobs package's asynq client.
type ImportEnqueuer interface {
	EnqueueImport(ctx context.Context, tenant, sessionID, migrationType string) error
}

// CooldownState describes a tenant's post-success cooldown.
type CooldownState struct {
	OnCooldown bool
	Remaining  time.Duration
}

// StatusReport is the polling view of a tenant's migrations.
type StatusReport struct {
	Current  *Session
	History  []Session
	Cooldown CooldownState
}

// Service owns the migration session lifecycle. Phase work happens in the
// external ingestion worker, which reports back through Advance.
type Service struct {
	store      SessionStore
	cooldown   CooldownStore
	enqueuer   ImportEnqueuer
	logger     *slog.Logger
	historyCap int
	now        func() time.Time
	onTerminal func(status Status)
}

// ServiceConfig collects optional service knobs.
type ServiceConfig struct {
	HistoryCap int
	// OnTerminal is invoked once per session reaching a terminal status.
	OnTerminal func(status Status)
}

// NewService constructs a Service.
func NewService(store SessionStore, cooldown CooldownStore, enqueuer ImportEnqueuer, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cap := cfg.HistoryCap
	if cap <= 0 {
		cap = 10
	}
	return &Service{
		store:      store,
		cooldown:   cooldown,
		enqueuer:   enqueuer,
		logger:     logger,
		historyCap: cap,
		now:        time.Now,
		onTerminal: cfg.OnTerminal,
	}
}

// Start creates a new session in the idle phase and enqueues the import job.
// It fails when a non-terminal session already exists for the tenant or the
// tenant is still inside the post-success cooldown window.
func (s *Service) Start(ctx context.Context, tenant, migrationType string) (*Session, error) {
	active, err := s.store.Active(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if active != nil && !active.Status.Terminal() {
		return nil, ErrAlreadyActive
	}

	onCooldown, remaining, err := s.cooldown.Check(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if onCooldown {
		return nil, &CooldownError{Remaining: remaining}
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Tenant:    tenant,
		Type:      migrationType,
		Status:    StatusIdle,
		StartedAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueImport(ctx, tenant, sess.ID, migrationType); err != nil {
			// Roll the session into a failed terminal state so the tenant is
			// not stuck with a phantom active migration.
			s.failLocked(ctx, sess, "enqueue import job: "+err.Error())
			return nil, err
		}
	}
	s.logger.Info("migration started",
		slog.String("tenant", tenant),
		slog.String("session", sess.ID),
		slog.String("type", migrationType))
	return sess, nil
}

// Advance moves a session to a new phase and folds in reported progress.
// Called by the ingestion worker. Reaching completed arms the cooldown.
func (s *Service) Advance(ctx context.Context, sessionID string, status Status, delta ProgressDelta) (*Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, ErrSessionTerminal
	}
	if !sess.Status.CanAdvanceTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, status)
	}

	sess.Status = status
	sess.Progress.RecordsProcessed += delta.ProcessedDelta
	sess.Progress.RecordsSkipped += delta.SkippedDelta
	if delta.TotalRecords > 0 {
		sess.Progress.TotalRecords = delta.TotalRecords
	}
	if delta.Message != "" {
		sess.Progress.Message = delta.Message
	}

	if !status.Terminal() {
		if err := s.store.Put(ctx, sess); err != nil {
			return nil, err
		}
		return sess, nil
	}

	completedAt := s.now().UTC()
	sess.CompletedAt = &completedAt
	if err := s.store.Finalize(ctx, sess); err != nil {
		return nil, err
	}
	if status == StatusCompleted {
		if err := s.cooldown.Set(ctx, sess.Tenant); err != nil {
			s.logger.Error("record migration cooldown",
				slog.String("tenant", sess.Tenant), slog.Any("error", err))
		}
	}
	if s.onTerminal != nil {
		s.onTerminal(status)
	}
	s.logger.Info("migration finished",
		slog.String("tenant", sess.Tenant),
		slog.String("session", sess.ID),
		slog.String("status", string(status)))
	return sess, nil
}

// Fail marks a session failed with a worker-supplied reason.
func (s *Service) Fail(ctx context.Context, sessionID, reason string) (*Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, ErrSessionTerminal
	}
	return s.failLocked(ctx, sess, reason), nil
}

func (s *Service) failLocked(ctx context.Context, sess *Session, reason string) *Session {
	sess.Status = StatusFailed
	sess.Error = reason
	completedAt := s.now().UTC()
	sess.CompletedAt = &completedAt
	if err := s.store.Finalize(ctx, sess); err != nil {
		s.logger.Error("finalize failed session",
			slog.String("session", sess.ID), slog.Any("error", err))
	}
	if s.onTerminal != nil {
		s.onTerminal(StatusFailed)
	}
	return sess
}

// Cancel moves a non-terminal session to failed with a cancellation marker.
// Cancellation is cooperative: the worker observes the terminal state between
// phases, or its remaining output is discarded.
func (s *Service) Cancel(ctx context.Context, sessionID string) (*Session, error) {
	return s.Fail(ctx, sessionID, CancelReason)
}

// Get fetches a session by ID.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.store.Get(ctx, sessionID)
}

// Status returns the tenant's current session, capped history, and cooldown
// state for polling clients.
func (s *Service) Status(ctx context.Context, tenant string) (*StatusReport, error) {
	current, err := s.store.Active(ctx, tenant)
	if err != nil {
		return nil, err
	}
	history, err := s.store.History(ctx, tenant, s.historyCap)
	if err != nil {
		return nil, err
	}
	onCooldown, remaining, err := s.cooldown.Check(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		Current:  current,
		History:  history,
		Cooldown: CooldownState{OnCooldown: onCooldown, Remaining: remaining},
	}, nil
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}
