package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-catalog/atlas/internal/platform/db"
	"github.com/atlas-catalog/atlas/internal/shared"
)

// ErrDuplicateName indicates a package name collision.
var ErrDuplicateName = errors.New("catalog: name already in use")

// Repository provides PostgreSQL backed persistence for packages, resources,
// resource views and collaborators.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pkgColumns = `id, name, title, notes, owner_org, creator_user_id, private, created_at, updated_at`

func scanPackage(row pgx.Row) (Package, error) {
	var p Package
	err := row.Scan(&p.ID, &p.Name, &p.Title, &p.Notes, &p.OwnerOrg, &p.CreatorUserID, &p.Private, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Package{}, shared.ErrNotFound
		}
		return Package{}, err
	}
	return p, nil
}

// GetPackage resolves a package by id or name.
func (r *Repository) GetPackage(ctx context.Context, idOrName string) (Package, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+pkgColumns+` FROM packages WHERE id = $1 OR name = $1`, idOrName)
	return scanPackage(row)
}

// ListPackages returns a page of packages ordered by name.
func (r *Repository) ListPackages(ctx context.Context, limit, offset int) ([]Package, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM packages`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+pkgColumns+` FROM packages ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// CreatePackage inserts a new package.
func (r *Repository) CreatePackage(ctx context.Context, p Package) (Package, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO packages (id, name, title, notes, owner_org, creator_user_id, private)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Title, p.Notes, p.OwnerOrg, p.CreatorUserID, p.Private).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Package{}, fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
		}
		return Package{}, err
	}
	return p, nil
}

// UpdatePackage persists changed package fields.
func (r *Repository) UpdatePackage(ctx context.Context, p Package) (Package, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE packages SET name = $2, title = $3, notes = $4, owner_org = $5, private = $6, updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		p.ID, p.Name, p.Title, p.Notes, p.OwnerOrg, p.Private).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Package{}, shared.ErrNotFound
		}
		return Package{}, err
	}
	return p, nil
}

// DeletePackage removes a package together with its search index entry.
// Resources and views cascade through foreign keys.
func (r *Repository) DeletePackage(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = tx.Exec(ctx, `DELETE FROM package_search WHERE package_id = $1`, id)
		return err
	})
}

// GetResource returns a resource by id.
func (r *Repository) GetResource(ctx context.Context, id string) (Resource, error) {
	var res Resource
	err := r.pool.QueryRow(ctx,
		`SELECT id, package_id, name, url, format, created_at, updated_at FROM resources WHERE id = $1`, id).
		Scan(&res.ID, &res.PackageID, &res.Name, &res.URL, &res.Format, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Resource{}, shared.ErrNotFound
		}
		return Resource{}, err
	}
	return res, nil
}

// CreateResource inserts a resource.
func (r *Repository) CreateResource(ctx context.Context, res Resource) (Resource, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO resources (id, package_id, name, url, format) VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		res.ID, res.PackageID, res.Name, res.URL, res.Format).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return Resource{}, err
	}
	return res, nil
}

// UpdateResource persists changed resource fields.
func (r *Repository) UpdateResource(ctx context.Context, res Resource) (Resource, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE resources SET name = $2, url = $3, format = $4, updated_at = NOW() WHERE id = $1
		 RETURNING updated_at`,
		res.ID, res.Name, res.URL, res.Format).Scan(&res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Resource{}, shared.ErrNotFound
		}
		return Resource{}, err
	}
	return res, nil
}

// DeleteResource removes a resource.
func (r *Repository) DeleteResource(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetResourceView returns a resource view by id.
func (r *Repository) GetResourceView(ctx context.Context, id string) (ResourceView, error) {
	var view ResourceView
	err := r.pool.QueryRow(ctx,
		`SELECT id, resource_id, title, view_type, created_at FROM resource_views WHERE id = $1`, id).
		Scan(&view.ID, &view.ResourceID, &view.Title, &view.ViewType, &view.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceView{}, shared.ErrNotFound
		}
		return ResourceView{}, err
	}
	return view, nil
}

// CreateResourceView inserts a resource view.
func (r *Repository) CreateResourceView(ctx context.Context, view ResourceView) (ResourceView, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO resource_views (id, resource_id, title, view_type) VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		view.ID, view.ResourceID, view.Title, view.ViewType).Scan(&view.CreatedAt)
	if err != nil {
		return ResourceView{}, err
	}
	return view, nil
}

// UpdateResourceView persists changed view fields.
func (r *Repository) UpdateResourceView(ctx context.Context, view ResourceView) (ResourceView, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE resource_views SET title = $2, view_type = $3 WHERE id = $1`,
		view.ID, view.Title, view.ViewType)
	if err != nil {
		return ResourceView{}, err
	}
	if tag.RowsAffected() == 0 {
		return ResourceView{}, shared.ErrNotFound
	}
	return view, nil
}

// DeleteResourceView removes a resource view.
func (r *Repository) DeleteResourceView(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM resource_views WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateCollaborator upserts a collaborator grant on a package.
func (r *Repository) CreateCollaborator(ctx context.Context, c Collaborator) (Collaborator, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO package_collaborators (package_id, user_id, capacity) VALUES ($1, $2, $3)
		 ON CONFLICT (package_id, user_id) DO UPDATE SET capacity = EXCLUDED.capacity
		 RETURNING created_at`,
		c.PackageID, c.UserID, c.Capacity).Scan(&c.CreatedAt)
	if err != nil {
		return Collaborator{}, err
	}
	return c, nil
}

// RefreshSearchIndex rebuilds the full-text entry for a package; deleted
// packages have their entry dropped.
func (r *Repository) RefreshSearchIndex(ctx context.Context, packageID string) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO package_search (package_id, document)
		 SELECT id, to_tsvector('simple', coalesce(name, '') || ' ' || coalesce(title, '') || ' ' || coalesce(notes, ''))
		 FROM packages WHERE id = $1
		 ON CONFLICT (package_id) DO UPDATE SET document = EXCLUDED.document, refreshed_at = NOW()`,
		packageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		_, err = r.pool.Exec(ctx, `DELETE FROM package_search WHERE package_id = $1`, packageID)
	}
	return err
}

// ListCollaborators returns every collaborator on a package.
func (r *Repository) ListCollaborators(ctx context.Context, packageID string) ([]Collaborator, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT package_id, user_id, capacity, created_at FROM package_collaborators WHERE package_id = $1`,
		packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Collaborator
	for rows.Next() {
		var c Collaborator
		if err := rows.Scan(&c.PackageID, &c.UserID, &c.Capacity, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
