package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog/validate"
	"github.com/atlas-catalog/atlas/internal/shared"
)

// ErrNotAuthorized indicates the dispatch table denied the operation.
var ErrNotAuthorized = errors.New("catalog: not authorized")

// ValidationError carries per-field messages from a failed validation pass.
type ValidationError struct {
	Fields validate.Errors
}

func (e *ValidationError) Error() string {
	return "catalog: validation failed: " + e.Fields.Summary()
}

// Store is the full persistence surface used by the action layer.
type Store interface {
	ObjectStore
	ListPackages(ctx context.Context, limit, offset int) ([]Package, int, error)
	CreatePackage(ctx context.Context, p Package) (Package, error)
	UpdatePackage(ctx context.Context, p Package) (Package, error)
	DeletePackage(ctx context.Context, id string) error
	CreateResource(ctx context.Context, res Resource) (Resource, error)
	UpdateResource(ctx context.Context, res Resource) (Resource, error)
	DeleteResource(ctx context.Context, id string) error
	CreateResourceView(ctx context.Context, view ResourceView) (ResourceView, error)
	UpdateResourceView(ctx context.Context, view ResourceView) (ResourceView, error)
	DeleteResourceView(ctx context.Context, id string) error
	CreateCollaborator(ctx context.Context, c Collaborator) (Collaborator, error)
	ListCollaborators(ctx context.Context, packageID string) ([]Collaborator, error)
}

// Indexer schedules search reindexing after package-shape changes.
type Indexer interface {
	ReindexPackage(ctx context.Context, packageID string) error
}

// AuditRecorder persists catalog mutation records; shared.AuditLogger
// satisfies it.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SchemaHook lets plugins rewrite the validation schema before a pass.
type SchemaHook func(schema validate.Schema)

// Service implements the catalog actions: every mutation consults the
// authorization dispatch table first, then runs the validator pipeline, then
// persists.
type Service struct {
	registry *authz.Registry
	store    Store
	roles    RoleDirectory
	indexer  Indexer
	audit    AuditRecorder
	logger   *slog.Logger

	schema      validate.Schema
	schemaHooks []SchemaHook
}

// NewService constructs a Service. indexer and audit may be nil.
func NewService(registry *authz.Registry, store Store, roles RoleDirectory, indexer Indexer, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		store:    store,
		roles:    roles,
		indexer:  indexer,
		audit:    audit,
		logger:   logger,
		schema:   PackageSchema(roles),
	}
}

// AddSchemaHook registers a schema rewrite applied to every validation pass.
func (s *Service) AddSchemaHook(hook SchemaHook) {
	s.schemaHooks = append(s.schemaHooks, hook)
}

// Objects exposes the object lookup surface for authorization wiring.
func (s *Service) Objects() ObjectStore {
	return s.store
}

func (s *Service) checkAccess(ctx context.Context, op string, actor *authz.Actor, data map[string]any) error {
	req := authz.NewRequest(actor, data)
	verdict, err := s.registry.Authorize(ctx, op, req)
	if err != nil {
		return err
	}
	if !verdict.Allowed {
		if verdict.Message != "" {
			return fmt.Errorf("%w: %s", ErrNotAuthorized, verdict.Message)
		}
		return ErrNotAuthorized
	}
	return nil
}

func (s *Service) applySchema(ctx context.Context, actor *authz.Actor, data map[string]any) error {
	schema := s.schema.Clone()
	for _, hook := range s.schemaHooks {
		hook(schema)
	}
	vctx := &validate.Context{Actor: actor}
	errs, err := schema.Apply(ctx, data, vctx)
	if err != nil {
		return err
	}
	if errs.HasErrors() {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor *authz.Actor, action, entity, entityID string) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{Action: action, Entity: entity, EntityID: entityID}
	if actor != nil {
		log.ActorID = actor.ID
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}

func (s *Service) reindex(ctx context.Context, packageID string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.ReindexPackage(ctx, packageID); err != nil && s.logger != nil {
		s.logger.Warn("enqueue reindex", slog.String("package", packageID), slog.Any("error", err))
	}
}

func str(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

// GetPackage resolves a package by id or name.
func (s *Service) GetPackage(ctx context.Context, idOrName string) (Package, error) {
	return s.store.GetPackage(ctx, idOrName)
}

// ListPackages returns one page of packages with pagination metadata.
func (s *Service) ListPackages(ctx context.Context, page, perPage int) ([]Package, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	pkgs, total, err := s.store.ListPackages(ctx, p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return pkgs, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// PackageCreate validates and persists a new package, assigning the acting
// user as creator.
func (s *Service) PackageCreate(ctx context.Context, actor *authz.Actor, data map[string]any) (Package, error) {
	if err := s.checkAccess(ctx, OpPackageCreate, actor, data); err != nil {
		return Package{}, err
	}
	if err := s.applySchema(ctx, actor, data); err != nil {
		return Package{}, err
	}
	pkg := Package{
		ID:       uuid.NewString(),
		Name:     str(data, "name"),
		Title:    str(data, "title"),
		Notes:    str(data, "notes"),
		OwnerOrg: str(data, "owner_org"),
	}
	if v, ok := data["private"].(bool); ok {
		pkg.Private = v
	}
	if actor != nil {
		pkg.CreatorUserID = actor.ID
	}
	created, err := s.store.CreatePackage(ctx, pkg)
	if err != nil {
		return Package{}, err
	}
	s.record(ctx, actor, "package.create", "package", created.ID)
	s.reindex(ctx, created.ID)
	return created, nil
}

// PackageUpdate validates and persists changes to an existing package.
func (s *Service) PackageUpdate(ctx context.Context, actor *authz.Actor, data map[string]any) (Package, error) {
	idOrName := str(data, "id")
	if idOrName == "" {
		idOrName = str(data, "name")
	}
	if idOrName == "" {
		return Package{}, fmt.Errorf("%w: missing id", authz.ErrValidation)
	}
	pkg, err := s.store.GetPackage(ctx, idOrName)
	if err != nil {
		return Package{}, err
	}
	data["id"] = pkg.ID
	if err := s.checkAccess(ctx, OpPackageUpdate, actor, data); err != nil {
		return Package{}, err
	}
	// Fill absent fields from the stored record so partial updates survive
	// the full-schema validation pass.
	if _, ok := data["name"]; !ok {
		data["name"] = pkg.Name
	}
	if _, ok := data["owner_org"]; !ok {
		data["owner_org"] = pkg.OwnerOrg
	}
	if err := s.applySchema(ctx, actor, data); err != nil {
		return Package{}, err
	}
	pkg.Name = str(data, "name")
	if v, ok := data["title"].(string); ok {
		pkg.Title = v
	}
	if v, ok := data["notes"].(string); ok {
		pkg.Notes = v
	}
	pkg.OwnerOrg = str(data, "owner_org")
	if v, ok := data["private"].(bool); ok {
		pkg.Private = v
	}
	updated, err := s.store.UpdatePackage(ctx, pkg)
	if err != nil {
		return Package{}, err
	}
	s.record(ctx, actor, "package.update", "package", updated.ID)
	s.reindex(ctx, updated.ID)
	return updated, nil
}

// PackageDelete removes a package.
func (s *Service) PackageDelete(ctx context.Context, actor *authz.Actor, data map[string]any) error {
	pkg, err := s.store.GetPackage(ctx, str(data, "id"))
	if err != nil {
		return err
	}
	data["id"] = pkg.ID
	if err := s.checkAccess(ctx, OpPackageDelete, actor, data); err != nil {
		return err
	}
	if err := s.store.DeletePackage(ctx, pkg.ID); err != nil {
		return err
	}
	s.record(ctx, actor, "package.delete", "package", pkg.ID)
	s.reindex(ctx, pkg.ID)
	return nil
}

// ResourceCreate attaches a resource to a package.
func (s *Service) ResourceCreate(ctx context.Context, actor *authz.Actor, data map[string]any) (Resource, error) {
	if err := s.checkAccess(ctx, OpResourceCreate, actor, data); err != nil {
		return Resource{}, err
	}
	packageID := str(data, "package_id")
	if packageID == "" {
		return Resource{}, fmt.Errorf("%w: missing package_id", authz.ErrValidation)
	}
	pkg, err := s.store.GetPackage(ctx, packageID)
	if err != nil {
		return Resource{}, err
	}
	if str(data, "url") == "" {
		return Resource{}, &ValidationError{Fields: validate.Errors{"url": {"missing value"}}}
	}
	res := Resource{
		ID:        uuid.NewString(),
		PackageID: pkg.ID,
		Name:      str(data, "name"),
		URL:       str(data, "url"),
		Format:    str(data, "format"),
	}
	created, err := s.store.CreateResource(ctx, res)
	if err != nil {
		return Resource{}, err
	}
	s.record(ctx, actor, "resource.create", "resource", created.ID)
	s.reindex(ctx, pkg.ID)
	return created, nil
}

// ResourceUpdate persists changes to a resource.
func (s *Service) ResourceUpdate(ctx context.Context, actor *authz.Actor, data map[string]any) (Resource, error) {
	if err := s.checkAccess(ctx, OpResourceUpdate, actor, data); err != nil {
		return Resource{}, err
	}
	res, err := s.store.GetResource(ctx, str(data, "id"))
	if err != nil {
		return Resource{}, err
	}
	if v, ok := data["name"].(string); ok {
		res.Name = v
	}
	if v, ok := data["url"].(string); ok {
		res.URL = v
	}
	if v, ok := data["format"].(string); ok {
		res.Format = v
	}
	updated, err := s.store.UpdateResource(ctx, res)
	if err != nil {
		return Resource{}, err
	}
	s.record(ctx, actor, "resource.update", "resource", updated.ID)
	s.reindex(ctx, res.PackageID)
	return updated, nil
}

// ResourceDelete removes a resource.
func (s *Service) ResourceDelete(ctx context.Context, actor *authz.Actor, data map[string]any) error {
	if err := s.checkAccess(ctx, OpResourceDelete, actor, data); err != nil {
		return err
	}
	res, err := s.store.GetResource(ctx, str(data, "id"))
	if err != nil {
		return err
	}
	if err := s.store.DeleteResource(ctx, res.ID); err != nil {
		return err
	}
	s.record(ctx, actor, "resource.delete", "resource", res.ID)
	s.reindex(ctx, res.PackageID)
	return nil
}

// ResourceViewCreate attaches a view to a resource. Payloads may name the
// resource as resource_id or id.
func (s *Service) ResourceViewCreate(ctx context.Context, actor *authz.Actor, data map[string]any) (ResourceView, error) {
	if err := s.checkAccess(ctx, OpResourceViewCreate, actor, data); err != nil {
		return ResourceView{}, err
	}
	resourceID := str(data, "resource_id")
	if resourceID == "" {
		resourceID = str(data, "id")
	}
	if resourceID == "" {
		return ResourceView{}, fmt.Errorf("%w: missing resource_id", authz.ErrValidation)
	}
	res, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return ResourceView{}, err
	}
	view := ResourceView{
		ID:         uuid.NewString(),
		ResourceID: res.ID,
		Title:      str(data, "title"),
		ViewType:   str(data, "view_type"),
	}
	created, err := s.store.CreateResourceView(ctx, view)
	if err != nil {
		return ResourceView{}, err
	}
	s.record(ctx, actor, "resource_view.create", "resource_view", created.ID)
	return created, nil
}

// ResourceViewUpdate persists changes to a resource view.
func (s *Service) ResourceViewUpdate(ctx context.Context, actor *authz.Actor, data map[string]any) (ResourceView, error) {
	if err := s.checkAccess(ctx, OpResourceViewUpdate, actor, data); err != nil {
		return ResourceView{}, err
	}
	view, err := s.store.GetResourceView(ctx, str(data, "id"))
	if err != nil {
		return ResourceView{}, err
	}
	if v, ok := data["title"].(string); ok {
		view.Title = v
	}
	if v, ok := data["view_type"].(string); ok {
		view.ViewType = v
	}
	updated, err := s.store.UpdateResourceView(ctx, view)
	if err != nil {
		return ResourceView{}, err
	}
	s.record(ctx, actor, "resource_view.update", "resource_view", updated.ID)
	return updated, nil
}

// ResourceViewDelete removes a resource view.
func (s *Service) ResourceViewDelete(ctx context.Context, actor *authz.Actor, data map[string]any) error {
	if err := s.checkAccess(ctx, OpResourceViewDelete, actor, data); err != nil {
		return err
	}
	view, err := s.store.GetResourceView(ctx, str(data, "id"))
	if err != nil {
		return err
	}
	if err := s.store.DeleteResourceView(ctx, view.ID); err != nil {
		return err
	}
	s.record(ctx, actor, "resource_view.delete", "resource_view", view.ID)
	return nil
}

// CollaboratorCreate grants a user collaborator access on a package.
func (s *Service) CollaboratorCreate(ctx context.Context, actor *authz.Actor, data map[string]any) (Collaborator, error) {
	if err := s.checkAccess(ctx, OpPackageCollaboratorCreate, actor, data); err != nil {
		return Collaborator{}, err
	}
	pkg, err := s.store.GetPackage(ctx, str(data, "id"))
	if err != nil {
		return Collaborator{}, err
	}
	userID := str(data, "user_id")
	if userID == "" {
		return Collaborator{}, fmt.Errorf("%w: missing user_id", authz.ErrValidation)
	}
	capacity := str(data, "capacity")
	if capacity == "" {
		capacity = "member"
	}
	created, err := s.store.CreateCollaborator(ctx, Collaborator{PackageID: pkg.ID, UserID: userID, Capacity: capacity})
	if err != nil {
		return Collaborator{}, err
	}
	s.record(ctx, actor, "package.collaborator_create", "package", pkg.ID)
	return created, nil
}

// CollaboratorList returns the collaborators on a package.
func (s *Service) CollaboratorList(ctx context.Context, actor *authz.Actor, data map[string]any) ([]Collaborator, error) {
	if err := s.checkAccess(ctx, OpPackageCollaboratorList, actor, data); err != nil {
		return nil, err
	}
	pkg, err := s.store.GetPackage(ctx, str(data, "id"))
	if err != nil {
		return nil, err
	}
	return s.store.ListCollaborators(ctx, pkg.ID)
}
