package orgs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-catalog/atlas/internal/shared"
)

// Repository provides PostgreSQL backed persistence for organizations and
// their membership rosters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrganization returns the organization with the given id.
func (r *Repository) GetOrganization(ctx context.Context, id string) (Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx, `SELECT id, name, title, description, created_at FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.Title, &org.Description, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, shared.ErrNotFound
		}
		return Organization{}, err
	}
	return org, nil
}

// ListOrganizations returns all organizations ordered by name.
func (r *Repository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, title, description, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Title, &org.Description, &org.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// CreateOrganization inserts a new organization.
func (r *Repository) CreateOrganization(ctx context.Context, org Organization) (Organization, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO organizations (id, name, title, description) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		org.ID, org.Name, org.Title, org.Description).Scan(&org.CreatedAt)
	if err != nil {
		return Organization{}, err
	}
	return org, nil
}

// RoleFor returns the user's role in the organization, RoleNone when the
// user has no membership record there.
func (r *Repository) RoleFor(ctx context.Context, orgID, username string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM organization_members WHERE org_id = $1 AND username = $2`, orgID, username).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleNone, nil
		}
		return RoleNone, err
	}
	return role, nil
}

// MembershipsForUser returns every membership the user holds.
func (r *Repository) MembershipsForUser(ctx context.Context, username string) ([]Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT org_id, username, role FROM organization_members WHERE username = $1`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.OrgID, &m.Username, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetMembership upserts the user's role in an organization.
func (r *Repository) SetMembership(ctx context.Context, m Membership) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO organization_members (org_id, username, role) VALUES ($1, $2, $3)
		 ON CONFLICT (org_id, username) DO UPDATE SET role = EXCLUDED.role`,
		m.OrgID, m.Username, m.Role)
	return err
}

// RemoveMembership deletes the user's membership record.
func (r *Repository) RemoveMembership(ctx context.Context, orgID, username string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM organization_members WHERE org_id = $1 AND username = $2`, orgID, username)
	return err
}
