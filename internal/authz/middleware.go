package authz

import (
	"log/slog"
	"net/http"

	"github.com/modl-gg/panel-sub007/internal/shared"
)

// Middleware wires hierarchy-based authorization helpers for HTTP handlers.
type Middleware struct {
	Cache   *Cache
	Logger  *slog.Logger
	Denials func(route string)
}

// RequirePermission ensures the current actor's role carries the permission.
// A missing actor, unknown role, or absent permission all deny with 403; the
// decision itself never errors.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			table := m.Cache.Get(r.Context(), actor.Tenant)
			if HasPermission(table, actor.RoleName, perm) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("permission denied",
					slog.String("tenant", actor.Tenant),
					slog.String("role", actor.RoleName),
					slog.String("permission", perm))
			}
			if m.Denials != nil {
				m.Denials(r.URL.Path)
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
