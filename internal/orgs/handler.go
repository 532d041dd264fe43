package orgs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/platform/httpx"
)

// Lister answers "which organizations can this user act in" questions. The
// plain Service satisfies it; authorization plugins may wrap it to widen the
// answer.
type Lister interface {
	ListForUser(ctx context.Context, username, permission string) ([]Organization, error)
}

// Handler wires HTTP endpoints for organizations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	lister    Lister
	validator *validator.Validate
}

// NewHandler constructs a Handler. lister may differ from service when an
// authorization plugin wraps the listing surface.
func NewHandler(logger *slog.Logger, service *Service, lister Lister) *Handler {
	if lister == nil {
		lister = service
	}
	return &Handler{logger: logger, service: service, lister: lister, validator: validator.New()}
}

// MountRoutes registers organization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/mine", h.listForUser)
	r.Get("/{id}", h.show)
	r.Put("/{id}/members", h.setMembership)
	r.Delete("/{id}/members/{username}", h.removeMembership)
}

type orgResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func toOrgResponse(org Organization) orgResponse {
	return orgResponse{ID: org.ID, Name: org.Name, Title: org.Title, Description: org.Description}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list organizations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]orgResponse, len(list))
	for i, org := range list {
		out[i] = toOrgResponse(org)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createOrgRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if authz.ActorFromContext(r.Context()) == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return
	}
	var req createOrgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	org, err := h.service.Create(r.Context(), Organization{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.logger.Error("create organization", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrgResponse(org))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrgResponse(org))
}

// listForUser returns the organizations the acting user can use for the
// requested permission, defaulting to dataset creation.
func (h *Handler) listForUser(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())
	if actor == nil {
		httpx.JSON(w, http.StatusOK, []orgResponse{})
		return
	}
	permission := r.URL.Query().Get("permission")
	if permission == "" {
		permission = PermCreateDataset
	}
	list, err := h.lister.ListForUser(r.Context(), actor.Name, permission)
	if err != nil {
		h.logger.Error("list organizations for user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]orgResponse, len(list))
	for i, org := range list {
		out[i] = toOrgResponse(org)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type membershipRequest struct {
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

func (h *Handler) setMembership(w http.ResponseWriter, r *http.Request) {
	if !h.requireOrgAdmin(w, r) {
		return
	}
	var req membershipRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role := Role(req.Role)
	if !role.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role "+req.Role)
		return
	}
	m := Membership{OrgID: chi.URLParam(r, "id"), Username: req.Username, Role: role}
	if err := h.service.SetMembership(r.Context(), m); err != nil {
		h.logger.Error("set membership", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeMembership(w http.ResponseWriter, r *http.Request) {
	if !h.requireOrgAdmin(w, r) {
		return
	}
	if err := h.service.RemoveMembership(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "username")); err != nil {
		h.logger.Error("remove membership", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireOrgAdmin writes a response and returns false unless the acting user
// administers the organization in the route.
func (h *Handler) requireOrgAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor := authz.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "authentication required")
		return false
	}
	role, err := h.service.RoleFor(r.Context(), chi.URLParam(r, "id"), actor.Name)
	if err != nil {
		h.logger.Error("resolve role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return false
	}
	if !role.Implies(PermAdmin) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "organization admin required")
		return false
	}
	return true
}
