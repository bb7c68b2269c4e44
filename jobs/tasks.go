package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/modl-gg/panel-sub007/internal/jobs"
	"github.com/modl-gg/panel-sub007/internal/migration"
)

const (
	// QueueMigrations is the queue name for migration import jobs.
	QueueMigrations = "migrations"
	// TaskTypeMigrationImport is the task type for punishment-data imports.
	TaskTypeMigrationImport = "migration:import"
)

// MigrationImportPayload identifies the session an import job drives.
type MigrationImportPayload struct {
	Tenant    string `json:"tenant"`
	SessionID string `json:"sessionId"`
	Type      string `json:"type"`
}

// NewMigrationImportTask constructs an Asynq task.
func NewMigrationImportTask(payload MigrationImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeMigrationImport, data, asynq.MaxRetry(0)), nil
}

// Export describes a built export file awaiting upload and processing.
type Export struct {
	Location     string
	TotalRecords int
}

// Importer performs the external-system work of an import: building the
// export from the source punishment database, uploading it, and processing
// the records into the panel.
type Importer interface {
	BuildExport(ctx context.Context, tenant, migrationType string) (Export, error)
	Upload(ctx context.Context, tenant string, exp Export) error
	Process(ctx context.Context, tenant string, exp Export) (processed, skipped int, err error)
}

// MigrationRunner drives a session through its phases, reporting each
// transition back through the migration service.
type MigrationRunner struct {
	Service  *migration.Service
	Importer Importer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle processes TaskTypeMigrationImport tasks. Session errors are recorded
// on the session itself rather than retried; cancellation is observed between
// phases.
func (r *MigrationRunner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload MigrationImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := r.Metrics.Track("migration_import")
	return tracker.End(r.run(ctx, payload))
}

func (r *MigrationRunner) run(ctx context.Context, payload MigrationImportPayload) error {
	if _, err := r.Service.Advance(ctx, payload.SessionID, migration.StatusBuilding, migration.ProgressDelta{Message: "building export"}); err != nil {
		return r.stopped(payload, err)
	}
	exp, err := r.Importer.BuildExport(ctx, payload.Tenant, payload.Type)
	if err != nil {
		return r.fail(ctx, payload, "build export: "+err.Error())
	}

	if _, err := r.Service.Advance(ctx, payload.SessionID, migration.StatusUploading, migration.ProgressDelta{
		TotalRecords: exp.TotalRecords,
		Message:      "uploading export",
	}); err != nil {
		return r.stopped(payload, err)
	}
	if err := r.Importer.Upload(ctx, payload.Tenant, exp); err != nil {
		return r.fail(ctx, payload, "upload export: "+err.Error())
	}

	if _, err := r.Service.Advance(ctx, payload.SessionID, migration.StatusProcessing, migration.ProgressDelta{Message: "processing records"}); err != nil {
		return r.stopped(payload, err)
	}
	processed, skipped, err := r.Importer.Process(ctx, payload.Tenant, exp)
	if err != nil {
		return r.fail(ctx, payload, "process records: "+err.Error())
	}

	if _, err := r.Service.Advance(ctx, payload.SessionID, migration.StatusCompleted, migration.ProgressDelta{
		ProcessedDelta: processed,
		SkippedDelta:   skipped,
		Message:        "import complete",
	}); err != nil {
		return r.stopped(payload, err)
	}
	return nil
}

// stopped handles Advance rejections. A terminal session means the import was
// cancelled mid-flight; that is not a job failure.
func (r *MigrationRunner) stopped(payload MigrationImportPayload, err error) error {
	if errors.Is(err, migration.ErrSessionTerminal) {
		if r.Logger != nil {
			r.Logger.Info("migration import stopped, session terminal",
				slog.String("tenant", payload.Tenant),
				slog.String("session", payload.SessionID))
		}
		return nil
	}
	return err
}

func (r *MigrationRunner) fail(ctx context.Context, payload MigrationImportPayload, reason string) error {
	if _, err := r.Service.Fail(ctx, payload.SessionID, reason); err != nil && !errors.Is(err, migration.ErrSessionTerminal) {
		return err
	}
	if r.Logger != nil {
		r.Logger.Warn("migration import failed",
			slog.String("tenant", payload.Tenant),
			slog.String("session", payload.SessionID),
			slog.String("reason", reason))
	}
	return nil
}
