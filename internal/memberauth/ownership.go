package memberauth

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
)

// OrgRoleIsValid reports whether the user holds a qualifying role (member,
// editor or admin) in the organization. Users with no membership record
// resolve to the no-role sentinel and do not qualify.
func (p *Plugin) OrgRoleIsValid(ctx context.Context, orgID, username string) (bool, error) {
	role, err := p.roles.RoleFor(ctx, orgID, username)
	if err != nil {
		return false, err
	}
	return role.Valid(), nil
}

// UserIsMemberOfPackageOrg reports whether the package belongs to an
// organization in which the user holds a qualifying role. Packages without
// an owning organization never match.
func (p *Plugin) UserIsMemberOfPackageOrg(ctx context.Context, actor *authz.Actor, pkg catalog.Package) (bool, error) {
	if actor == nil || pkg.OwnerOrg == "" {
		return false, nil
	}
	return p.OrgRoleIsValid(ctx, pkg.OwnerOrg, actor.Name)
}

// UserOwnsPackageAsMember reports whether the user both holds a qualifying
// role in the package's organization and originally created the package.
// Membership is checked first so a stale creator reference left after role
// revocation never grants ownership on its own.
func (p *Plugin) UserOwnsPackageAsMember(ctx context.Context, actor *authz.Actor, pkg catalog.Package) (bool, error) {
	member, err := p.UserIsMemberOfPackageOrg(ctx, actor, pkg)
	if err != nil || !member {
		return false, err
	}
	return pkg.CreatorUserID != "" && pkg.CreatorUserID == actor.ID, nil
}
