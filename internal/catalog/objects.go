package catalog

import (
	"context"
	"fmt"

	"github.com/atlas-catalog/atlas/internal/authz"
)

// ObjectStore is the lookup surface authorization needs; the full Repository
// satisfies it.
type ObjectStore interface {
	GetPackage(ctx context.Context, idOrName string) (Package, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	GetResourceView(ctx context.Context, id string) (ResourceView, error)
}

// resourceViewCacheKey is the request-cache slot for the memoized view.
const resourceViewCacheKey = "resource_view"

// GetPackageObject resolves the package referenced by the request's id (or
// name) field.
func GetPackageObject(ctx context.Context, store ObjectStore, req *authz.Request) (Package, error) {
	id, ok := req.String("id")
	if !ok {
		id, ok = req.String("name")
	}
	if !ok {
		return Package{}, fmt.Errorf("%w: missing id, can not get Package object", authz.ErrValidation)
	}
	return store.GetPackage(ctx, id)
}

// GetResourceObject resolves the resource referenced by the request's id
// field.
func GetResourceObject(ctx context.Context, store ObjectStore, req *authz.Request) (Resource, error) {
	id, ok := req.String("id")
	if !ok {
		return Resource{}, fmt.Errorf("%w: missing id, can not get Resource object", authz.ErrValidation)
	}
	return store.GetResource(ctx, id)
}

// GetResourceViewObject resolves the resource view referenced by the
// request's id field, consulting the request cache first so repeated lookups
// within one authorization pass hit storage only once.
func GetResourceViewObject(ctx context.Context, store ObjectStore, req *authz.Request) (ResourceView, error) {
	if req.Cache != nil {
		if cached, ok := req.Cache.Get(resourceViewCacheKey); ok {
			if view, ok := cached.(ResourceView); ok {
				return view, nil
			}
		}
	}
	id, ok := req.String("id")
	if !ok {
		return ResourceView{}, fmt.Errorf("%w: missing id, can not get ResourceView object", authz.ErrValidation)
	}
	view, err := store.GetResourceView(ctx, id)
	if err != nil {
		return ResourceView{}, err
	}
	if req.Cache != nil {
		req.Cache.Put(resourceViewCacheKey, view)
	}
	return view, nil
}
