package orgs

import "testing"

func TestRoleValid(t *testing.T) {
	valid := []Role{RoleMember, RoleEditor, RoleAdmin}
	for _, r := range valid {
		if !r.Valid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	invalid := []Role{RoleNone, Role("owner"), Role("Member")}
	for _, r := range invalid {
		if r.Valid() {
			t.Fatalf("expected %q to be invalid", r)
		}
	}
}

func TestRoleImplies(t *testing.T) {
	cases := []struct {
		role Role
		perm string
		want bool
	}{
		{RoleAdmin, PermAdmin, true},
		{RoleAdmin, PermCreateDataset, true},
		{RoleEditor, PermCreateDataset, true},
		{RoleEditor, PermUpdateDataset, true},
		{RoleEditor, PermDeleteDataset, true},
		{RoleEditor, PermRead, true},
		{RoleEditor, PermAdmin, false},
		{RoleMember, PermRead, true},
		{RoleMember, PermCreateDataset, false},
		{RoleMember, PermAdmin, false},
		{RoleNone, PermRead, false},
	}
	for _, tc := range cases {
		if got := tc.role.Implies(tc.perm); got != tc.want {
			t.Fatalf("%q implies %q: expected %v, got %v", tc.role, tc.perm, tc.want, got)
		}
	}
}
