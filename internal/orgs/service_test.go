package orgs

import (
	"context"
	"testing"

	"github.com/atlas-catalog/atlas/internal/shared"
)

type stubStore struct {
	orgs        map[string]Organization
	memberships []Membership
}

func (s *stubStore) GetOrganization(ctx context.Context, id string) (Organization, error) {
	if org, ok := s.orgs[id]; ok {
		return org, nil
	}
	return Organization{}, shared.ErrNotFound
}

func (s *stubStore) ListOrganizations(ctx context.Context) ([]Organization, error) {
	out := make([]Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (s *stubStore) CreateOrganization(ctx context.Context, org Organization) (Organization, error) {
	if s.orgs == nil {
		s.orgs = make(map[string]Organization)
	}
	s.orgs[org.ID] = org
	return org, nil
}

func (s *stubStore) RoleFor(ctx context.Context, orgID, username string) (Role, error) {
	for _, m := range s.memberships {
		if m.OrgID == orgID && m.Username == username {
			return m.Role, nil
		}
	}
	return RoleNone, nil
}

func (s *stubStore) MembershipsForUser(ctx context.Context, username string) ([]Membership, error) {
	var out []Membership
	for _, m := range s.memberships {
		if m.Username == username {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubStore) SetMembership(ctx context.Context, m Membership) error {
	s.memberships = append(s.memberships, m)
	return nil
}

func (s *stubStore) RemoveMembership(ctx context.Context, orgID, username string) error {
	kept := s.memberships[:0]
	for _, m := range s.memberships {
		if m.OrgID != orgID || m.Username != username {
			kept = append(kept, m)
		}
	}
	s.memberships = kept
	return nil
}

func newStubService() (*Service, *stubStore) {
	store := &stubStore{
		orgs: map[string]Organization{
			"org-a": {ID: "org-a", Name: "alpha"},
			"org-b": {ID: "org-b", Name: "beta"},
		},
		memberships: []Membership{
			{OrgID: "org-a", Username: "alice", Role: RoleMember},
			{OrgID: "org-b", Username: "alice", Role: RoleEditor},
			{OrgID: "org-a", Username: "erin", Role: RoleEditor},
		},
	}
	return NewService(store), store
}

func TestRoleForBlankArguments(t *testing.T) {
	svc, _ := newStubService()

	if role, err := svc.RoleFor(context.Background(), "", "alice"); err != nil || role != RoleNone {
		t.Fatalf("expected no role for blank org, got %q err %v", role, err)
	}
	if role, err := svc.RoleFor(context.Background(), "org-a", ""); err != nil || role != RoleNone {
		t.Fatalf("expected no role for blank user, got %q err %v", role, err)
	}
}

func TestRoleForUnknownOrgIsNone(t *testing.T) {
	svc, _ := newStubService()
	role, err := svc.RoleFor(context.Background(), "org-missing", "alice")
	if err != nil {
		t.Fatalf("role for: %v", err)
	}
	if role != RoleNone {
		t.Fatalf("expected no role, got %q", role)
	}
}

func TestHasPermissionForSomeOrg(t *testing.T) {
	svc, _ := newStubService()

	// alice is editor in org-b, so create_dataset holds somewhere.
	ok, err := svc.HasPermissionForSomeOrg(context.Background(), "alice", PermCreateDataset)
	if err != nil || !ok {
		t.Fatalf("expected create_dataset somewhere for alice, got %v err %v", ok, err)
	}
	ok, err = svc.HasPermissionForSomeOrg(context.Background(), "alice", PermAdmin)
	if err != nil || ok {
		t.Fatalf("expected no admin permission for alice, got %v err %v", ok, err)
	}
	ok, err = svc.HasPermissionForSomeOrg(context.Background(), "", PermRead)
	if err != nil || ok {
		t.Fatalf("expected anonymous to hold nothing, got %v err %v", ok, err)
	}
}

func TestListForUserFiltersByPermission(t *testing.T) {
	svc, _ := newStubService()

	list, err := svc.ListForUser(context.Background(), "alice", PermCreateDataset)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(list) != 1 || list[0].ID != "org-b" {
		t.Fatalf("expected only the editor organization, got %v", list)
	}

	list, err = svc.ListForUser(context.Background(), "alice", PermRead)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected both organizations for read, got %v", list)
	}
}

func TestSetAndRemoveMembership(t *testing.T) {
	svc, store := newStubService()

	if err := svc.SetMembership(context.Background(), Membership{OrgID: "org-a", Username: "carol", Role: RoleMember}); err != nil {
		t.Fatalf("set membership: %v", err)
	}
	if role, _ := store.RoleFor(context.Background(), "org-a", "carol"); role != RoleMember {
		t.Fatalf("expected membership recorded, got %q", role)
	}

	if err := svc.RemoveMembership(context.Background(), "org-a", "carol"); err != nil {
		t.Fatalf("remove membership: %v", err)
	}
	if role, _ := store.RoleFor(context.Background(), "org-a", "carol"); role != RoleNone {
		t.Fatalf("expected membership removed, got %q", role)
	}
}
