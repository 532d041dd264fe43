package memberauth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
	"github.com/atlas-catalog/atlas/internal/catalog/validate"
	"github.com/atlas-catalog/atlas/internal/memberauth"
	"github.com/atlas-catalog/atlas/internal/orgs"
	"github.com/atlas-catalog/atlas/internal/shared"
	_ "github.com/atlas-catalog/atlas/testing"
)

type stubRoles struct {
	memberships map[string]orgs.Role // keyed "org/user"
	err         error
}

func (s *stubRoles) RoleFor(ctx context.Context, orgID, username string) (orgs.Role, error) {
	if s.err != nil {
		return orgs.RoleNone, s.err
	}
	return s.memberships[orgID+"/"+username], nil
}

func (s *stubRoles) HasPermissionForSomeOrg(ctx context.Context, username, permission string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for key, role := range s.memberships {
		if strings.HasSuffix(key, "/"+username) && role.Implies(permission) {
			return true, nil
		}
	}
	return false, nil
}

type stubStore struct {
	packages  map[string]catalog.Package
	resources map[string]catalog.Resource
	views     map[string]catalog.ResourceView
	viewGets  int
}

func (s *stubStore) GetPackage(ctx context.Context, idOrName string) (catalog.Package, error) {
	if p, ok := s.packages[idOrName]; ok {
		return p, nil
	}
	for _, p := range s.packages {
		if p.Name == idOrName {
			return p, nil
		}
	}
	return catalog.Package{}, shared.ErrNotFound
}

func (s *stubStore) GetResource(ctx context.Context, id string) (catalog.Resource, error) {
	if r, ok := s.resources[id]; ok {
		return r, nil
	}
	return catalog.Resource{}, shared.ErrNotFound
}

func (s *stubStore) GetResourceView(ctx context.Context, id string) (catalog.ResourceView, error) {
	s.viewGets++
	if v, ok := s.views[id]; ok {
		return v, nil
	}
	return catalog.ResourceView{}, shared.ErrNotFound
}

// fixture: org-a has alice (member, creator of pkg-1) and bob (member) and
// erin (editor); pkg-2 has no owning organization.
func fixture() (*stubRoles, *stubStore) {
	roles := &stubRoles{memberships: map[string]orgs.Role{
		"org-a/alice": orgs.RoleMember,
		"org-a/bob":   orgs.RoleMember,
		"org-a/erin":  orgs.RoleEditor,
	}}
	store := &stubStore{
		packages: map[string]catalog.Package{
			"pkg-1": {ID: "pkg-1", Name: "first", OwnerOrg: "org-a", CreatorUserID: "alice-id"},
			"pkg-2": {ID: "pkg-2", Name: "orphan", CreatorUserID: "alice-id"},
		},
		resources: map[string]catalog.Resource{
			"res-1": {ID: "res-1", PackageID: "pkg-1", URL: "http://example.com/data.csv"},
		},
		views: map[string]catalog.ResourceView{
			"view-1": {ID: "view-1", ResourceID: "res-1", ViewType: "table"},
		},
	}
	return roles, store
}

func newRegistry(t *testing.T, roles *stubRoles, store *stubStore) (*authz.Registry, *memberauth.Plugin) {
	t.Helper()
	reg := authz.NewRegistry()
	catalog.RegisterDefaults(reg, &catalog.Defaults{Roles: roles, Store: store})
	plugin := memberauth.New(roles, store)
	if err := plugin.RegisterAuth(reg); err != nil {
		t.Fatalf("register auth: %v", err)
	}
	return reg, plugin
}

var (
	alice = &authz.Actor{ID: "alice-id", Name: "alice"}
	bob   = &authz.Actor{ID: "bob-id", Name: "bob"}
	erin  = &authz.Actor{ID: "erin-id", Name: "erin"}
	carol = &authz.Actor{ID: "carol-id", Name: "carol"} // no memberships
)

func authorize(t *testing.T, reg *authz.Registry, op string, actor *authz.Actor, data map[string]any) authz.Verdict {
	t.Helper()
	verdict, err := reg.Authorize(context.Background(), op, authz.NewRequest(actor, data))
	if err != nil {
		t.Fatalf("authorize %s: %v", op, err)
	}
	return verdict
}

func TestOrgRoleIsValid(t *testing.T) {
	roles, store := fixture()
	roles.memberships["org-a/ada"] = orgs.RoleAdmin
	plugin := memberauth.New(roles, store)

	cases := []struct {
		user string
		want bool
	}{
		{"alice", true},
		{"erin", true},
		{"ada", true},
		{"carol", false},
	}
	for _, tc := range cases {
		got, err := plugin.OrgRoleIsValid(context.Background(), "org-a", tc.user)
		if err != nil {
			t.Fatalf("%s: %v", tc.user, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.user, tc.want, got)
		}
	}
}

func TestOrgRoleIsValidPropagatesLookupError(t *testing.T) {
	boom := errors.New("role store down")
	plugin := memberauth.New(&stubRoles{err: boom}, &stubStore{})

	if _, err := plugin.OrgRoleIsValid(context.Background(), "org-a", "alice"); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestUserOwnsPackageAsMember(t *testing.T) {
	roles, store := fixture()
	plugin := memberauth.New(roles, store)
	pkg := store.packages["pkg-1"]

	cases := []struct {
		name  string
		actor *authz.Actor
		pkg   catalog.Package
		want  bool
	}{
		{"creator and member", alice, pkg, true},
		{"member but not creator", bob, pkg, false},
		{"creator without membership", &authz.Actor{ID: "alice-id", Name: "carol"}, pkg, false},
		{"package without organization", alice, store.packages["pkg-2"], false},
		{"package without creator", alice, catalog.Package{ID: "x", OwnerOrg: "org-a"}, false},
		{"anonymous", nil, pkg, false},
	}
	for _, tc := range cases {
		got, err := plugin.UserOwnsPackageAsMember(context.Background(), tc.actor, tc.pkg)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestPackageCreateMemberAllowed(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	verdict := authorize(t, reg, catalog.OpPackageCreate, alice, map[string]any{"owner_org": "org-a"})
	if !verdict.Allowed {
		t.Fatalf("expected member to create in own organization: %+v", verdict)
	}
}

func TestPackageCreateOutsiderFallsThroughToDenial(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	verdict := authorize(t, reg, catalog.OpPackageCreate, carol, map[string]any{"owner_org": "org-a"})
	if verdict.Allowed {
		t.Fatalf("expected outsider to be denied")
	}
	if verdict.Message == "" {
		t.Fatalf("expected the default rule's denial message")
	}
}

func TestPackageCreateWithoutOrgUsesReadPermission(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	// alice is only a member, which grants read but not create_dataset, so
	// the overlay rather than the default grants this.
	verdict := authorize(t, reg, catalog.OpPackageCreate, alice, map[string]any{})
	if !verdict.Allowed {
		t.Fatalf("expected member of some organization to pass: %+v", verdict)
	}

	verdict = authorize(t, reg, catalog.OpPackageCreate, carol, map[string]any{})
	if verdict.Allowed {
		t.Fatalf("expected user without memberships to be denied")
	}
}

func TestPackageCreateAnonymousDenied(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	verdict := authorize(t, reg, catalog.OpPackageCreate, nil, map[string]any{"owner_org": "org-a"})
	if verdict.Allowed {
		t.Fatalf("expected anonymous request to be denied")
	}
}

func TestPackageUpdateOwnerAllowedOthersFallThrough(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	if v := authorize(t, reg, catalog.OpPackageUpdate, alice, map[string]any{"id": "pkg-1"}); !v.Allowed {
		t.Fatalf("expected creating member to update own package: %+v", v)
	}
	// bob is a plain member and not the creator: the overlay falls through
	// and the default denies.
	if v := authorize(t, reg, catalog.OpPackageUpdate, bob, map[string]any{"id": "pkg-1"}); v.Allowed {
		t.Fatalf("expected non-creator member to be denied")
	}
	// erin holds the editor role, so the default grants even though the
	// overlay fell through.
	if v := authorize(t, reg, catalog.OpPackageUpdate, erin, map[string]any{"id": "pkg-1"}); !v.Allowed {
		t.Fatalf("expected editor to update via the default rule: %+v", v)
	}
}

func TestPackageUpdateMissingIDIsValidationError(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	_, err := reg.Authorize(context.Background(), catalog.OpPackageUpdate, authz.NewRequest(alice, map[string]any{}))
	if !errors.Is(err, authz.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStaleCreatorReferenceDoesNotGrant(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	// alice created pkg-1 but her membership is revoked afterwards.
	delete(roles.memberships, "org-a/alice")

	if v := authorize(t, reg, catalog.OpPackageUpdate, alice, map[string]any{"id": "pkg-1"}); v.Allowed {
		t.Fatalf("expected revoked member to lose ownership access")
	}
	if v := authorize(t, reg, catalog.OpPackageDelete, alice, map[string]any{"id": "pkg-1"}); v.Allowed {
		t.Fatalf("expected revoked member to lose delete access")
	}
}

func TestPackageDeleteMirrorsUpdate(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	if v := authorize(t, reg, catalog.OpPackageDelete, alice, map[string]any{"id": "pkg-1"}); !v.Allowed {
		t.Fatalf("expected creating member to delete own package: %+v", v)
	}
	if v := authorize(t, reg, catalog.OpPackageDelete, bob, map[string]any{"id": "pkg-1"}); v.Allowed {
		t.Fatalf("expected non-creator member to be denied")
	}
}

func TestResourceOperationsResolveParentPackage(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	if v := authorize(t, reg, catalog.OpResourceCreate, alice, map[string]any{"package_id": "pkg-1"}); !v.Allowed {
		t.Fatalf("expected owner to attach resources: %+v", v)
	}
	if v := authorize(t, reg, catalog.OpResourceUpdate, alice, map[string]any{"id": "res-1"}); !v.Allowed {
		t.Fatalf("expected owner to update resources: %+v", v)
	}
	if v := authorize(t, reg, catalog.OpResourceDelete, bob, map[string]any{"id": "res-1"}); v.Allowed {
		t.Fatalf("expected non-creator member to be denied on resources")
	}
}

func TestResourceViewChainAndMemoization(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	// erin is not the creator, so the overlay resolves the view, falls
	// through, and the default resolves it again from the same request; the
	// cache keeps that at one storage hit.
	req := authz.NewRequest(erin, map[string]any{"id": "view-1"})
	verdict, err := reg.Authorize(context.Background(), catalog.OpResourceViewUpdate, req)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !verdict.Allowed {
		t.Fatalf("expected editor to update view via the default rule: %+v", verdict)
	}
	if store.viewGets != 1 {
		t.Fatalf("expected one view lookup, got %d", store.viewGets)
	}
}

func TestResourceViewCreateAcceptsEitherIDKey(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	if v := authorize(t, reg, catalog.OpResourceViewCreate, alice, map[string]any{"resource_id": "res-1"}); !v.Allowed {
		t.Fatalf("expected resource_id payload to pass: %+v", v)
	}
	if v := authorize(t, reg, catalog.OpResourceViewCreate, alice, map[string]any{"id": "res-1"}); !v.Allowed {
		t.Fatalf("expected id payload to pass: %+v", v)
	}
	_, err := reg.Authorize(context.Background(), catalog.OpResourceViewCreate, authz.NewRequest(alice, map[string]any{}))
	if !errors.Is(err, authz.ErrValidation) {
		t.Fatalf("expected validation error for missing resource reference, got %v", err)
	}
}

func TestResourceViewCreateFallThroughAcceptsEitherIDKey(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	// erin is not the creator, so the overlay falls through and the default
	// rule resolves the resource itself; both key spellings must give it the
	// same reference.
	byID := authorize(t, reg, catalog.OpResourceViewCreate, erin, map[string]any{"id": "res-1"})
	byResourceID := authorize(t, reg, catalog.OpResourceViewCreate, erin, map[string]any{"resource_id": "res-1"})
	if !byID.Allowed || !byResourceID.Allowed {
		t.Fatalf("expected editor to pass with either key: id=%+v resource_id=%+v", byID, byResourceID)
	}
}

func TestCollaboratorOpsForOwners(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)

	if v := authorize(t, reg, catalog.OpPackageCollaboratorCreate, alice, map[string]any{"id": "pkg-1"}); !v.Allowed {
		t.Fatalf("expected owner to manage collaborators: %+v", v)
	}
	if v := authorize(t, reg, catalog.OpPackageCollaboratorList, alice, map[string]any{"id": "pkg-1"}); !v.Allowed {
		t.Fatalf("expected owner to list collaborators: %+v", v)
	}
	// bob falls through to the default, which requires the admin role.
	if v := authorize(t, reg, catalog.OpPackageCollaboratorCreate, bob, map[string]any{"id": "pkg-1"}); v.Allowed {
		t.Fatalf("expected plain member to be denied collaborator management")
	}
}

func TestLookupErrorsPropagateThroughChain(t *testing.T) {
	roles, store := fixture()
	reg, _ := newRegistry(t, roles, store)
	boom := errors.New("role store down")
	roles.err = boom

	_, err := reg.Authorize(context.Background(), catalog.OpPackageUpdate, authz.NewRequest(alice, map[string]any{"id": "pkg-1"}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected collaborator error to propagate, got %v", err)
	}
}

func TestOwnerOrgValidatorOverride(t *testing.T) {
	roles, store := fixture()
	plugin := memberauth.New(roles, store)

	schema := catalog.PackageSchema(roles).Clone()
	plugin.SchemaHook()(schema)

	apply := func(user, ownerOrg string) validate.Errors {
		errs, err := schema.Apply(context.Background(), map[string]any{
			"name":      "a-dataset",
			"owner_org": ownerOrg,
		}, &validate.Context{Username: user})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		return errs
	}

	// A plain member fails the default create_dataset rule but passes the
	// overlay's membership rule.
	if errs := apply("alice", "org-a"); errs.HasErrors() {
		t.Fatalf("expected member to assign own organization, got %v", errs)
	}
	// Outsiders still get the default's field error.
	if errs := apply("carol", "org-a"); len(errs["owner_org"]) == 0 {
		t.Fatalf("expected field error for outsider, got %v", errs)
	}
	// Unknown organizations resolve to no role and fall to the default.
	if errs := apply("alice", "org-unknown"); len(errs["owner_org"]) == 0 {
		t.Fatalf("expected field error for unknown organization, got %v", errs)
	}
	// An unset owner_org delegates to the default, which accepts it.
	if errs := apply("alice", ""); errs.HasErrors() {
		t.Fatalf("expected empty owner_org to pass, got %v", errs)
	}
}

type recordingLister struct {
	permission string
}

func (l *recordingLister) ListForUser(ctx context.Context, username, permission string) ([]orgs.Organization, error) {
	l.permission = permission
	return nil, nil
}

func TestOrganizationListForUserWidensDatasetPermissions(t *testing.T) {
	roles, store := fixture()
	plugin := memberauth.New(roles, store)

	recorder := &recordingLister{}
	lister := plugin.OrganizationListForUser(recorder)

	for _, perm := range []string{orgs.PermCreateDataset, orgs.PermUpdateDataset, orgs.PermDeleteDataset} {
		if _, err := lister.ListForUser(context.Background(), "alice", perm); err != nil {
			t.Fatalf("list for %s: %v", perm, err)
		}
		if recorder.permission != orgs.PermRead {
			t.Fatalf("expected %s to widen to read, got %s", perm, recorder.permission)
		}
	}

	if _, err := lister.ListForUser(context.Background(), "alice", orgs.PermAdmin); err != nil {
		t.Fatalf("list for admin: %v", err)
	}
	if recorder.permission != orgs.PermAdmin {
		t.Fatalf("expected admin permission to pass through, got %s", recorder.permission)
	}
}
