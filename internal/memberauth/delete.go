package memberauth

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
)

// PackageDelete grants deletion on packages the actor owns as a member.
func (p *Plugin) PackageDelete(next authz.Authorizer) authz.Authorizer {
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

// ResourceDelete grants deletion on resources whose package the actor owns
// as a member.
func (p *Plugin) ResourceDelete(next authz.Authorizer) authz.Authorizer {
	return p.resourceGate(next)
}

// ResourceViewDelete grants deletion on views whose package the actor owns
// as a member.
func (p *Plugin) ResourceViewDelete(next authz.Authorizer) authz.Authorizer {
	return p.resourceViewGate(next)
}
