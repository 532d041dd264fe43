package orgs

import "time"

// Role is a user's capacity inside an organization.
type Role string

const (
	// RoleNone is the sentinel for users with no membership record.
	RoleNone Role = ""
	// RoleMember can read organization datasets.
	RoleMember Role = "member"
	// RoleEditor can manage datasets owned by the organization.
	RoleEditor Role = "editor"
	// RoleAdmin can manage the organization itself.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is an actual membership capacity rather
// than the no-role sentinel or an unknown value.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// Organization-scoped permissions, modelled after the capability levels the
// catalog checks against memberships.
const (
	PermRead          = "read"
	PermCreateDataset = "create_dataset"
	PermUpdateDataset = "update_dataset"
	PermDeleteDataset = "delete_dataset"
	PermAdmin         = "admin"
)

// Implies reports whether the role grants the given permission. Admins hold
// every permission, editors hold dataset management, members hold read.
func (r Role) Implies(permission string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleEditor:
		switch permission {
		case PermRead, PermCreateDataset, PermUpdateDataset, PermDeleteDataset:
			return true
		}
	case RoleMember:
		return permission == PermRead
	}
	return false
}

// Organization groups datasets and carries a membership roster.
type Organization struct {
	ID          string
	Name        string
	Title       string
	Description string
	CreatedAt   time.Time
}

// Membership maps a user to their role inside an organization.
type Membership struct {
	OrgID    string
	Username string
	Role     Role
}
