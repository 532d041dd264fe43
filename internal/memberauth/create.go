package memberauth

import (
	"context"
	"fmt"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
	"github.com/atlas-catalog/atlas/internal/orgs"
)

// PackageCreate grants creation to users with a qualifying role in the
// target organization. When no target organization is given, it grants
// creation to users holding read rights in some organization, matching the
// host's anonymous-org create path.
func (p *Plugin) PackageCreate(next authz.Authorizer) authz.Authorizer {
	return authz.Func(func(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
		if req.Actor != nil {
			if ownerOrg, ok := req.String("owner_org"); ok {
				valid, err := p.OrgRoleIsValid(ctx, ownerOrg, req.Actor.Name)
				if err != nil {
					return authz.Deny(""), err
				}
				if valid {
					return authz.Allow(), nil
				}
			} else {
				some, err := p.roles.HasPermissionForSomeOrg(ctx, req.Actor.Name, orgs.PermRead)
				if err != nil {
					return authz.Deny(""), err
				}
				if some {
					return authz.Allow(), nil
				}
			}
		}
		return next.Authorize(ctx, req)
	})
}

// ResourceCreate grants creation on packages the actor owns as a member.
// The parent package comes from package_id, or from the resource named by id
// when only that is present.
func (p *Plugin) ResourceCreate(next authz.Authorizer) authz.Authorizer {
	return authz.Func(func(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
		pkg, err := p.parentPackage(ctx, req)
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

// ResourceViewCreate grants creation on views of resources whose package the
// actor owns as a member. Payloads may name the resource as resource_id or
// id; both are accepted.
func (p *Plugin) ResourceViewCreate(next authz.Authorizer) authz.Authorizer {
	return authz.Func(func(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
		resourceID, ok := req.String("resource_id")
		if !ok {
			resourceID, ok = req.String("id")
		}
		if !ok {
			return authz.Deny(""), fmt.Errorf("%w: missing id, can not get Resource object", authz.ErrValidation)
		}
		// Carry the reference under both keys so the wrapped rule, which
		// reads only id, resolves the same resource on fall-through.
		req.Data["id"] = resourceID
		req.Data["resource_id"] = resourceID
		res, err := p.store.GetResource(ctx, resourceID)
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

func (p *Plugin) parentPackage(ctx context.Context, req *authz.Request) (catalog.Package, error) {
	if packageID, ok := req.String("package_id"); ok {
		return p.store.GetPackage(ctx, packageID)
	}
	if resourceID, ok := req.String("id"); ok {
		res, err := p.store.GetResource(ctx, resourceID)
		if err != nil {
			return catalog.Package{}, err
		}
		return p.store.GetPackage(ctx, res.PackageID)
	}
	return catalog.Package{}, fmt.Errorf("%w: missing package_id, can not get Package object", authz.ErrValidation)
}
