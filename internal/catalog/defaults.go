package catalog

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/orgs"
)

// RoleDirectory answers organization role questions; orgs.Service
// satisfies it.
type RoleDirectory interface {
	RoleFor(ctx context.Context, orgID, username string) (orgs.Role, error)
	HasPermissionForSomeOrg(ctx context.Context, username, permission string) (bool, error)
}

// Defaults holds the catalog's built-in authorization rules. These terminate
// every authorizer chain: they always produce a definitive verdict and never
// fall through.
type Defaults struct {
	Roles RoleDirectory
	Store ObjectStore
}

// RegisterDefaults installs the built-in rule for every catalog operation.
func RegisterDefaults(reg *authz.Registry, d *Defaults) {
	reg.Register(OpPackageCreate, authz.Func(d.PackageCreate))
	reg.Register(OpPackageUpdate, authz.Func(d.PackageUpdate))
	reg.Register(OpPackageDelete, authz.Func(d.PackageDelete))
	reg.Register(OpResourceCreate, authz.Func(d.ResourceCreate))
	reg.Register(OpResourceUpdate, authz.Func(d.ResourceUpdate))
	reg.Register(OpResourceDelete, authz.Func(d.ResourceDelete))
	reg.Register(OpResourceViewCreate, authz.Func(d.ResourceViewCreate))
	reg.Register(OpResourceViewUpdate, authz.Func(d.ResourceViewUpdate))
	reg.Register(OpResourceViewDelete, authz.Func(d.ResourceViewDelete))
	reg.Register(OpPackageCollaboratorCreate, authz.Func(d.PackageCollaboratorCreate))
	reg.Register(OpPackageCollaboratorList, authz.Func(d.PackageCollaboratorList))
}

// PackageCreate allows users who can create datasets in the target
// organization, or in some organization when no target is given.
func (d *Defaults) PackageCreate(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	if req.Actor == nil {
		return authz.Deny("user is not authorized to create packages"), nil
	}
	if ownerOrg, ok := req.String("owner_org"); ok {
		role, err := d.Roles.RoleFor(ctx, ownerOrg, req.Actor.Name)
		if err != nil {
			return authz.Deny(""), err
		}
		if role.Implies(orgs.PermCreateDataset) {
			return authz.Allow(), nil
		}
		return authz.Deny("user is not authorized to create packages in this organization"), nil
	}
	ok, err := d.Roles.HasPermissionForSomeOrg(ctx, req.Actor.Name, orgs.PermCreateDataset)
	if err != nil {
		return authz.Deny(""), err
	}
	if ok {
		return authz.Allow(), nil
	}
	return authz.Deny("user is not authorized to create packages"), nil
}

// PackageUpdate allows organization editors and admins, and the creator for
// packages without an owning organization.
func (d *Defaults) PackageUpdate(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	pkg, err := GetPackageObject(ctx, d.Store, req)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermUpdateDataset)
}

// PackageDelete mirrors PackageUpdate with the delete capability.
func (d *Defaults) PackageDelete(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	pkg, err := GetPackageObject(ctx, d.Store, req)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermDeleteDataset)
}

// ResourceCreate requires update rights on the parent package.
func (d *Defaults) ResourceCreate(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	pkg, err := d.parentPackage(ctx, req)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermUpdateDataset)
}

// ResourceUpdate requires update rights on the resource's package.
func (d *Defaults) ResourceUpdate(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	res, err := GetResourceObject(ctx, d.Store, req)
	if err != nil {
		return authz.Deny(""), err
	}
	pkg, err := d.Store.GetPackage(ctx, res.PackageID)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermUpdateDataset)
}

// ResourceDelete requires delete rights on the resource's package.
func (d *Defaults) ResourceDelete(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	res, err := GetResourceObject(ctx, d.Store, req)
	if err != nil {
		return authz.Deny(""), err
	}
	pkg, err := d.Store.GetPackage(ctx, res.PackageID)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermDeleteDataset)
}

// ResourceViewCreate requires update rights on the package owning the
// parent resource.
func (d *Defaults) ResourceViewCreate(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	res, err := GetResourceObject(ctx, d.Store, req)
	if err != nil {
		return authz.Deny(""), err
	}
	pkg, err := d.Store.GetPackage(ctx, res.PackageID)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermUpdateDataset)
}

// ResourceViewUpdate requires update rights on the view's package.
func (d *Defaults) ResourceViewUpdate(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	pkg, err := d.viewPackage(ctx, req)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermUpdateDataset)
}

// ResourceViewDelete requires delete rights on the view's package.
func (d *Defaults) ResourceViewDelete(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	pkg, err := d.viewPackage(ctx, req)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermDeleteDataset)
}

// PackageCollaboratorCreate is restricted to organization admins and the
// creator of organization-less packages.
func (d *Defaults) PackageCollaboratorCreate(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	pkg, err := GetPackageObject(ctx, d.Store, req)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermAdmin)
}

// PackageCollaboratorList mirrors PackageCollaboratorCreate.
func (d *Defaults) PackageCollaboratorList(ctx context.Context, req *authz.Request) (authz.Verdict, error) {
	pkg, err := GetPackageObject(ctx, d.Store, req)
	if err != nil {
		return authz.Deny(""), err
	}
	return d.packageManage(ctx, req.Actor, pkg, orgs.PermAdmin)
}

func (d *Defaults) parentPackage(ctx context.Context, req *authz.Request) (Package, error) {
	if packageID, ok := req.String("package_id"); ok {
		return d.Store.GetPackage(ctx, packageID)
	}
	res, err := GetResourceObject(ctx, d.Store, req)
	if err != nil {
		return Package{}, err
	}
	return d.Store.GetPackage(ctx, res.PackageID)
}

func (d *Defaults) viewPackage(ctx context.Context, req *authz.Request) (Package, error) {
	view, err := GetResourceViewObject(ctx, d.Store, req)
	if err != nil {
		return Package{}, err
	}
	res, err := d.Store.GetResource(ctx, view.ResourceID)
	if err != nil {
		return Package{}, err
	}
	return d.Store.GetPackage(ctx, res.PackageID)
}

func (d *Defaults) packageManage(ctx context.Context, actor *authz.Actor, pkg Package, permission string) (authz.Verdict, error) {
	if actor == nil {
		return authz.Deny("user is not authorized"), nil
	}
	if pkg.OwnerOrg == "" {
		if pkg.CreatorUserID != "" && pkg.CreatorUserID == actor.ID {
			return authz.Allow(), nil
		}
		return authz.Deny("user is not authorized to edit this package"), nil
	}
	role, err := d.Roles.RoleFor(ctx, pkg.OwnerOrg, actor.Name)
	if err != nil {
		return authz.Deny(""), err
	}
	if role.Implies(permission) {
		return authz.Allow(), nil
	}
	return authz.Deny("user is not authorized to edit this package"), nil
}
