package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/platform/httpx"
	"github.com/atlas-catalog/atlas/internal/shared"
)

// Handler wires the catalog actions to HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes on the root router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/packages", func(r chi.Router) {
		r.Get("/", h.listPackages)
		r.Post("/", h.createPackage)
		r.Get("/{id}", h.showPackage)
		r.Put("/{id}", h.updatePackage)
		r.Delete("/{id}", h.deletePackage)
		r.Get("/{id}/collaborators", h.listCollaborators)
		r.Post("/{id}/collaborators", h.createCollaborator)
	})
	r.Route("/api/resources", func(r chi.Router) {
		r.Post("/", h.createResource)
		r.Put("/{id}", h.updateResource)
		r.Delete("/{id}", h.deleteResource)
	})
	r.Route("/api/resource-views", func(r chi.Router) {
		r.Post("/", h.createResourceView)
		r.Put("/{id}", h.updateResourceView)
		r.Delete("/{id}", h.deleteResourceView)
	})
}

// respondErr maps catalog errors onto HTTP responses before falling back to
// the generic mapper.
func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"title":  "Validation Failed",
			"status": http.StatusBadRequest,
			"errors": verr.Fields,
		})
	case errors.Is(err, ErrNotAuthorized):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, authz.ErrValidation) {
			h.logger.Error("catalog request failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func decodeData(r *http.Request) (map[string]any, bool) {
	data := map[string]any{}
	if r.Body == nil || r.ContentLength == 0 {
		return data, true
	}
	if err := httpx.DecodeJSON(r, &data); err != nil {
		return nil, false
	}
	return data, true
}

type packageResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Title         string    `json:"title,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	OwnerOrg      string    `json:"owner_org,omitempty"`
	CreatorUserID string    `json:"creator_user_id,omitempty"`
	Private       bool      `json:"private"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toPackageResponse(p Package) packageResponse {
	return packageResponse{
		ID:            p.ID,
		Name:          p.Name,
		Title:         p.Title,
		Notes:         p.Notes,
		OwnerOrg:      p.OwnerOrg,
		CreatorUserID: p.CreatorUserID,
		Private:       p.Private,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (h *Handler) listPackages(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pkgs, pagination, err := h.service.ListPackages(r.Context(), page, perPage)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	out := make([]packageResponse, len(pkgs))
	for i, p := range pkgs {
		out[i] = toPackageResponse(p)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"packages":    out,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

func (h *Handler) showPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.service.GetPackage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPackageResponse(pkg))
}

func (h *Handler) createPackage(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	pkg, err := h.service.PackageCreate(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPackageResponse(pkg))
}

func (h *Handler) updatePackage(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	data["id"] = chi.URLParam(r, "id")
	pkg, err := h.service.PackageUpdate(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPackageResponse(pkg))
}

func (h *Handler) deletePackage(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"id": chi.URLParam(r, "id")}
	if err := h.service.PackageDelete(r.Context(), authz.ActorFromContext(r.Context()), data); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resourceResponse struct {
	ID        string `json:"id"`
	PackageID string `json:"package_id"`
	Name      string `json:"name,omitempty"`
	URL       string `json:"url"`
	Format    string `json:"format,omitempty"`
}

func toResourceResponse(res Resource) resourceResponse {
	return resourceResponse{ID: res.ID, PackageID: res.PackageID, Name: res.Name, URL: res.URL, Format: res.Format}
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	res, err := h.service.ResourceCreate(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResourceResponse(res))
}

func (h *Handler) updateResource(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	data["id"] = chi.URLParam(r, "id")
	res, err := h.service.ResourceUpdate(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResourceResponse(res))
}

func (h *Handler) deleteResource(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"id": chi.URLParam(r, "id")}
	if err := h.service.ResourceDelete(r.Context(), authz.ActorFromContext(r.Context()), data); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resourceViewResponse struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Title      string `json:"title,omitempty"`
	ViewType   string `json:"view_type"`
}

func toResourceViewResponse(view ResourceView) resourceViewResponse {
	return resourceViewResponse{ID: view.ID, ResourceID: view.ResourceID, Title: view.Title, ViewType: view.ViewType}
}

func (h *Handler) createResourceView(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	view, err := h.service.ResourceViewCreate(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResourceViewResponse(view))
}

func (h *Handler) updateResourceView(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	data["id"] = chi.URLParam(r, "id")
	view, err := h.service.ResourceViewUpdate(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResourceViewResponse(view))
}

func (h *Handler) deleteResourceView(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"id": chi.URLParam(r, "id")}
	if err := h.service.ResourceViewDelete(r.Context(), authz.ActorFromContext(r.Context()), data); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type collaboratorResponse struct {
	PackageID string `json:"package_id"`
	UserID    string `json:"user_id"`
	Capacity  string `json:"capacity"`
}

func (h *Handler) listCollaborators(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"id": chi.URLParam(r, "id")}
	list, err := h.service.CollaboratorList(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	out := make([]collaboratorResponse, len(list))
	for i, c := range list {
		out[i] = collaboratorResponse{PackageID: c.PackageID, UserID: c.UserID, Capacity: c.Capacity}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createCollaborator(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	data["id"] = chi.URLParam(r, "id")
	c, err := h.service.CollaboratorCreate(r.Context(), authz.ActorFromContext(r.Context()), data)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, collaboratorResponse{PackageID: c.PackageID, UserID: c.UserID, Capacity: c.Capacity})
}
