// Package memberauth overlays the catalog's authorization rules so that
// plain organization members may create datasets in their organizations and
// edit or delete the datasets they created, without holding the editor or
// admin role. Every gate either grants access under the member-ownership
// rule or falls through to the catalog's built-in rule; nothing is denied
// here that the built-in rule would have allowed.
package memberauth

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
	"github.com/atlas-catalog/atlas/internal/catalog/validate"
	"github.com/atlas-catalog/atlas/internal/orgs"
)

// RoleLookup answers organization role questions; orgs.Service satisfies it.
type RoleLookup interface {
	RoleFor(ctx context.Context, orgID, username string) (orgs.Role, error)
	HasPermissionForSomeOrg(ctx context.Context, username, permission string) (bool, error)
}

// Plugin bundles the member-ownership gates and validator overrides.
type Plugin struct {
	roles RoleLookup
	store catalog.ObjectStore
}

// New constructs the plugin over the role and object lookup collaborators.
func New(roles RoleLookup, store catalog.ObjectStore) *Plugin {
	return &Plugin{roles: roles, store: store}
}

// RegisterAuth overlays the member gates onto the dispatch table. The
// catalog defaults must already be registered; they become each gate's
// fall-through handler.
func (p *Plugin) RegisterAuth(reg *authz.Registry) error {
	gates := []struct {
		op   string
		gate authz.Gate
	}{
		{catalog.OpPackageCreate, p.PackageCreate},
		{catalog.OpPackageUpdate, p.PackageUpdate},
		{catalog.OpPackageDelete, p.PackageDelete},
		{catalog.OpResourceCreate, p.ResourceCreate},
		{catalog.OpResourceUpdate, p.ResourceUpdate},
		{catalog.OpResourceDelete, p.ResourceDelete},
		{catalog.OpResourceViewCreate, p.ResourceViewCreate},
		{catalog.OpResourceViewUpdate, p.ResourceViewUpdate},
		{catalog.OpResourceViewDelete, p.ResourceViewDelete},
		{catalog.OpPackageCollaboratorCreate, p.PackageCollaboratorCreate},
		{catalog.OpPackageCollaboratorList, p.PackageCollaboratorList},
	}
	for _, g := range gates {
		if err := reg.Override(g.op, g.gate); err != nil {
			return err
		}
	}
	return nil
}

// SchemaHook replaces the default owner_org validator with the member-aware
// one, keeping the default as the fall-through so its required/optional
// semantics are preserved.
func (p *Plugin) SchemaHook() catalog.SchemaHook {
	return func(schema validate.Schema) {
		def, ok := schema.Lookup("owner_org", catalog.ValidatorOwnerOrg)
		if !ok {
			return
		}
		schema.Replace("owner_org", catalog.ValidatorOwnerOrg, p.OwnerOrgValidator(def))
	}
}

// OrgLister lists the organizations a user holds a permission in;
// orgs.Service satisfies it.
type OrgLister interface {
	ListForUser(ctx context.Context, username, permission string) ([]orgs.Organization, error)
}

type widenedOrgLister struct {
	next OrgLister
}

// OrganizationListForUser wraps the host's organization listing so that
// dataset capabilities are answered with the read permission, which every
// member holds. Dataset pickers then include organizations the member rule
// lets the user create datasets in.
func (p *Plugin) OrganizationListForUser(next OrgLister) OrgLister {
	return &widenedOrgLister{next: next}
}

func (l *widenedOrgLister) ListForUser(ctx context.Context, username, permission string) ([]orgs.Organization, error) {
	switch permission {
	case orgs.PermCreateDataset, orgs.PermUpdateDataset, orgs.PermDeleteDataset:
		permission = orgs.PermRead
	}
	return l.next.ListForUser(ctx, username, permission)
}
