package memberauth

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
)

// PackageUpdate grants updates on packages the actor owns as a member; all
// other cases fall through so the catalog's editor and admin rules still
// apply.
func (p *Plugin) PackageUpdate(next authz.Authorizer) authz.Authorizer {
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

// ResourceUpdate grants updates on resources whose package the actor owns
// as a member.
func (p *Plugin) ResourceUpdate(next authz.Authorizer) authz.Authorizer {
	return p.resourceGate(next)
}

// ResourceViewUpdate grants updates on views whose package the actor owns
// as a member.
func (p *Plugin) ResourceViewUpdate(next authz.Authorizer) authz.Authorizer {
	return p.resourceViewGate(next)
}

// resourceGate resolves a resource's package and applies the
// owner-as-member rule.
func (p *Plugin) resourceGate(next authz.Authorizer) authz.Authorizer {
	return authz.Func(func(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
		res, err := catalog.GetResourceObject(ctx, p.store, req)
		if err != nil {
			return authz.Deny(""), err
		}
		pkg, err := p.store.GetPackage(ctx, res.PackageID)
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

// resourceViewGate resolves a view (memoized per request), then its resource
// and package, and applies the owner-as-member rule.
func (p *Plugin) resourceViewGate(next authz.Authorizer) authz.Authorizer {
	return authz.Func(func(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
		view, err := catalog.GetResourceViewObject(ctx, p.store, req)
		if err != nil {
			return authz.Deny(""), err
		}
		res, err := p.store.GetResource(ctx, view.ResourceID)
		if err != nil {
			return authz.Deny(""), err
		}
		pkg, err := p.store.GetPackage(ctx, res.PackageID)
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
