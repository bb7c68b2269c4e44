package roles

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/modl-gg/panel-sub007/internal/authz"
	"github.com/modl-gg/panel-sub007/internal/platform/httpx"
	"github.com/modl-gg/panel-sub007/internal/shared"
)

var titleCaser = cases.Title(language.English)

// Handler manages role management endpoints.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(shared.PermRolesView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(shared.PermRolesEdit))
		r.Post("/", h.create)
		r.Put("/{name}", h.update)
		r.Delete("/{name}", h.remove)
		r.Post("/reorder", h.reorder)
	})
}

type roleResponse struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Order       int      `json:"order"`
	Permissions []string `json:"permissions"`
	UpdatedAt   string   `json:"updatedAt"`
}

func toRoleResponse(role Role) roleResponse {
	perms := role.Permissions
	if perms == nil {
		perms = []string{}
	}
	return roleResponse{
		Name:        role.Name,
		DisplayName: titleCaser.String(role.Name),
		Order:       role.Order,
		Permissions: perms,
		UpdatedAt:   role.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	list, err := h.service.List(r.Context(), actor.Tenant)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]roleResponse, 0, len(list))
	for _, role := range list {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type roleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=48"`
	Order       int      `json:"order" validate:"gte=0"`
	Permissions []string `json:"permissions" validate:"dive,min=3"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role := Role{Name: req.Name, Order: req.Order, Permissions: req.Permissions}
	if err := h.service.Create(r.Context(), actor.Tenant, actor.RoleName, role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	req.Name = name
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role := Role{Name: name, Order: req.Order, Permissions: req.Permissions}
	if err := h.service.Update(r.Context(), actor.Tenant, actor.RoleName, role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if err := h.service.Delete(r.Context(), actor.Tenant, actor.RoleName, name); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	Roles []reorderEntry `json:"roles" validate:"required,min=1,dive"`
}

type reorderEntry struct {
	Name  string `json:"name" validate:"required"`
	Order int    `json:"order" validate:"gte=0"`
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	var req reorderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries := make([]ReorderEntry, 0, len(req.Roles))
	for _, e := range req.Roles {
		entries = append(entries, ReorderEntry{Name: e.Name, Order: e.Order})
	}
	rejected, err := h.service.Reorder(r.Context(), actor.Tenant, actor.RoleName, entries)
	if err != nil {
		h.logger.Error("reorder roles", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if rejected == nil {
		rejected = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rejected": rejected})
}
