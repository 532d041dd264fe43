package orgs

import (
	"context"
	"strings"
)

// Store abstracts persistence so the service can be exercised with stubs.
type Store interface {
	GetOrganization(ctx context.Context, id string) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	CreateOrganization(ctx context.Context, org Organization) (Organization, error)
	RoleFor(ctx context.Context, orgID, username string) (Role, error)
	MembershipsForUser(ctx context.Context, username string) ([]Membership, error)
	SetMembership(ctx context.Context, m Membership) error
	RemoveMembership(ctx context.Context, orgID, username string) error
}

// Service answers role and membership questions for the rest of the catalog.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get fetches an organization by id.
func (s *Service) Get(ctx context.Context, id string) (Organization, error) {
	return s.store.GetOrganization(ctx, id)
}

// List returns all organizations.
func (s *Service) List(ctx context.Context) ([]Organization, error) {
	return s.store.ListOrganizations(ctx)
}

// Create inserts a new organization.
func (s *Service) Create(ctx context.Context, org Organization) (Organization, error) {
	org.Name = strings.TrimSpace(org.Name)
	return s.store.CreateOrganization(ctx, org)
}

// RoleFor returns the user's role in the organization. Users without a
// membership record get RoleNone; absence of the organization itself is
// indistinguishable from absence of membership at this level.
func (s *Service) RoleFor(ctx context.Context, orgID, username string) (Role, error) {
	if orgID == "" || username == "" {
		return RoleNone, nil
	}
	return s.store.RoleFor(ctx, orgID, username)
}

// HasPermissionForSomeOrg reports whether the user holds the permission in
// at least one organization.
func (s *Service) HasPermissionForSomeOrg(ctx context.Context, username, permission string) (bool, error) {
	if username == "" {
		return false, nil
	}
	memberships, err := s.store.MembershipsForUser(ctx, username)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		if m.Role.Implies(permission) {
			return true, nil
		}
	}
	return false, nil
}

// ListForUser returns the organizations in which the user holds the given
// permission.
func (s *Service) ListForUser(ctx context.Context, username, permission string) ([]Organization, error) {
	if username == "" {
		return nil, nil
	}
	memberships, err := s.store.MembershipsForUser(ctx, username)
	if err != nil {
		return nil, err
	}
	var out []Organization
	for _, m := range memberships {
		if !m.Role.Implies(permission) {
			continue
		}
		org, err := s.store.GetOrganization(ctx, m.OrgID)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, nil
}

// SetMembership upserts a membership; used by seeding and admin tooling.
func (s *Service) SetMembership(ctx context.Context, m Membership) error {
	return s.store.SetMembership(ctx, m)
}

// RemoveMembership drops a membership record.
func (s *Service) RemoveMembership(ctx context.Context, orgID, username string) error {
	return s.store.RemoveMembership(ctx, orgID, username)
}
