package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/modl-gg/panel-sub007/internal/auth"
	"github.com/modl-gg/panel-sub007/internal/migration"
	"github.com/modl-gg/panel-sub007/internal/observability"
	"github.com/modl-gg/panel-sub007/internal/roles"
	"github.com/modl-gg/panel-sub007/internal/staff"
	"github.com/modl-gg/panel-sub007/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthMiddleware   auth.Middleware
	RolesHandler     *roles.Handler
	StaffHandler     *staff.Handler
	MigrationHandler *migration.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with panel defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Authenticated API surface.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.StaffHandler != nil {
			r.Route("/staff", params.StaffHandler.MountRoutes)
		}
		if params.MigrationHandler != nil {
			r.Route("/migration", params.MigrationHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
