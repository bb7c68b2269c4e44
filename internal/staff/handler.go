package staff

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
	"github.com/modl-gg/panel-sub007/internal/shared"
)

// Handler manages staff membership endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	authz    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authzMW authz.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		authz:    authzMW,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers staff routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(shared.PermStaffView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(shared.PermStaffManage))
		r.Put("/{username}/role", h.changeRole)
		r.Delete("/{username}", h.remove)
	})
	// Linking is gated per-identity inside the service, not by a blanket
	// permission: non-root staff may always relink their own account.
	r.Put("/{username}/minecraft", h.linkGameAccount)
}

type memberResponse struct {
	Username      string `json:"username"`
	Role          string `json:"role"`
	MinecraftUUID string `json:"minecraftUuid,omitempty"`
	UpdatedAt     string `json:"updatedAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	members, err := h.service.List(r.Context(), actor.Tenant)
	if err != nil {
		h.logger.Error("list staff", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			Username:      m.Username,
			Role:          m.RoleName,
			MinecraftUUID: m.MinecraftUUID,
			UpdatedAt:     m.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,min=2,max=48"`
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ChangeRole(r.Context(), actor, username, req.Role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if err := h.service.Remove(r.Context(), actor, username); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkGameAccountRequest struct {
	MinecraftUUID string `json:"minecraftUuid" validate:"required,uuid4"`
}

func (h *Handler) linkGameAccount(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	var req linkGameAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.LinkGameAccount(r.Context(), actor, username, req.MinecraftUUID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
