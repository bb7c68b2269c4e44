package migration

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
	"github.com/modl-gg/panel-sub007/internal/shared"
)

// Handler exposes the migration session endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	limiter  *UploadLimiter
	authz    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, limiter *UploadLimiter, authzMW authz.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		limiter:  limiter,
		authz:    authzMW,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers migration routes. The upload limiter wraps the start
// endpoint; it sits in front of the state machine's own gating.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authz.RequirePermission(shared.PermMigrationRun))
	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware)
		r.Post("/start", h.start)
	})
	r.Post("/cancel", h.cancel)
	r.Get("/status", h.status)
}

type startRequest struct {
	Type string `json:"type" validate:"required,oneof=litebans advancedban libertybans vanilla"`
}

type sessionResponse struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Status      Status   `json:"status"`
	Progress    Progress `json:"progress"`
	Percent     int      `json:"percent"`
	Error       string   `json:"error,omitempty"`
	StartedAt   string   `json:"startedAt"`
	CompletedAt string   `json:"completedAt,omitempty"`
}

func toSessionResponse(sess *Session) *sessionResponse {
	if sess == nil {
		return nil
	}
	resp := &sessionResponse{
		ID:        sess.ID,
		Type:      sess.Type,
		Status:    sess.Status,
		Progress:  sess.Progress,
		Percent:   sess.Percent(),
		Error:     sess.Error,
		StartedAt: sess.StartedAt.UTC().Format(time.RFC3339),
	}
	if sess.CompletedAt != nil {
		resp.CompletedAt = sess.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sess, err := h.service.Start(r.Context(), actor.Tenant, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyActive):
			httpx.Problem(w, http.StatusConflict, "Migration Already Active", err.Error())
		case errors.Is(err, ErrOnCooldown):
			h.respondCooldown(w, err)
		default:
			h.logger.Error("start migration", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusAccepted, toSessionResponse(sess))
}

func (h *Handler) respondCooldown(w http.ResponseWriter, startErr error) {
	remaining := DefaultCooldown
	var cdErr *CooldownError
	if errors.As(startErr, &cdErr) {
		remaining = cdErr.Remaining
	}
	retryAfter := int(remaining.Seconds() + 0.5)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httpx.JSON(w, http.StatusTooManyRequests, map[string]any{
		"error":         startErr.Error(),
		"retryAfter":    retryAfter,
		"nextAttemptAt": time.Now().Add(remaining).UTC().Format(time.RFC3339),
	})
}

type cancelRequest struct {
	SessionID string `json:"sessionId" validate:"required,uuid4"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sess, err := h.service.Get(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("load migration session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	// A tenant can only cancel its own session.
	if sess.Tenant != actor.Tenant {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	cancelled, err := h.service.Cancel(r.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		case errors.Is(err, ErrSessionTerminal):
			httpx.Problem(w, http.StatusConflict, "Session Terminal", err.Error())
		default:
			h.logger.Error("cancel migration", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, toSessionResponse(cancelled))
}

type statusResponse struct {
	Current  *sessionResponse  `json:"current"`
	History  []sessionResponse `json:"history"`
	Cooldown cooldownResponse  `json:"cooldown"`
}

type cooldownResponse struct {
	OnCooldown    bool   `json:"onCooldown"`
	RetryAfter    int    `json:"retryAfter,omitempty"`
	NextAttemptAt string `json:"nextAttemptAt,omitempty"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	report, err := h.service.Status(r.Context(), actor.Tenant)
	if err != nil {
		h.logger.Error("migration status", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	resp := statusResponse{Current: toSessionResponse(report.Current)}
	resp.History = make([]sessionResponse, 0, len(report.History))
	for i := range report.History {
		resp.History = append(resp.History, *toSessionResponse(&report.History[i]))
	}
	if report.Cooldown.OnCooldown {
		resp.Cooldown = cooldownResponse{
			OnCooldown:    true,
			RetryAfter:    int(report.Cooldown.Remaining.Seconds() + 0.5),
			NextAttemptAt: time.Now().Add(report.Cooldown.Remaining).UTC().Format(time.RFC3339),
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
