package memberauth

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
)

// PackageCollaboratorCreate lets member-owners manage collaborators on
// their own packages.
func (p *Plugin) PackageCollaboratorCreate(next authz.Authorizer) authz.Authorizer {
	return p.collaboratorGate(next)
}

// PackageCollaboratorList lets member-owners list collaborators on their
// own packages.
func (p *Plugin) PackageCollaboratorList(next authz.Authorizer) authz.Authorizer {
	return p.collaboratorGate(next)
}

func (p *Plugin) collaboratorGate(next authz.Authorizer) authz.Authorizer {
	return authz.Func(func(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
		pkg, err := catalog.GetPackageObject(ctx, p.store, req)
		if err != nil {
			return authz.Deny(""), err
		}
		if req.Actor != nil {
			owns, err := p.UserOwnsPackageAsMember(ctx, req.Actor, pkg)
			if err != nil {
				return authz.Deny(""), err
			}
			if owns {
				return authz.Allow(), nil
			}
		}
		return next.Authorize(ctx, req)
	})
}
