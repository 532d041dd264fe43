package catalog

import "time"

// Operation names as registered in the authorization dispatch table.
const (
	OpPackageCreate = "package_create"
	OpPackageUpdate = "package_update"
	OpPackageDelete = "package_delete"

	OpResourceCreate = "resource_create"
	OpResourceUpdate = "resource_update"
	OpResourceDelete = "resource_delete"

	OpResourceViewCreate = "resource_view_create"
	OpResourceViewUpdate = "resource_view_update"
	OpResourceViewDelete = "resource_view_delete"

	OpPackageCollaboratorCreate = "package_collaborator_create"
	OpPackageCollaboratorList   = "package_collaborator_list"
)

// Package is a dataset record. OwnerOrg may be empty, meaning the dataset is
// not constrained to any organization.
type Package struct {
	ID            string
	Name          string
	Title         string
	Notes         string
	OwnerOrg      string
	CreatorUserID string
	Private       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Resource is a file or endpoint attached to a package.
type Resource struct {
	ID        string
	PackageID string
	Name      string
	URL       string
	Format    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResourceView is a visualization of a resource.
type ResourceView struct {
	ID         string
	ResourceID string
	Title      string
	ViewType   string
	CreatedAt  time.Time
}

// Collaborator grants a user direct access to a package outside the owning
// organization's roster.
type Collaborator struct {
	PackageID string
	UserID    string
	Capacity  string
	CreatedAt time.Time
}
