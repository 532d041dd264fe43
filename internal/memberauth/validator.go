package memberauth

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/catalog/validate"
)

// OwnerOrgValidator wraps the default owner_org validator: a set owner_org
// passes when the acting user holds a qualifying role in it, otherwise the
// default rule decides. An unset owner_org delegates immediately so the
// default's required/optional semantics stay intact. The qualifying-role set
// here must stay identical to the ownership predicates', or a user could be
// authorized to create a dataset in an organization they cannot assign as
// its owner.
func (p *Plugin) OwnerOrgValidator(def validate.FieldValidator) validate.FieldValidator {
	return func(ctx context.Context, key string, data map[string]any, errs validate.Errors, vctx *validate.Context) error {
		ownerOrg, _ := data[key].(string)
		if ownerOrg == "" {
			return def(ctx, key, data, errs, vctx)
		}
		valid, err := p.OrgRoleIsValid(ctx, ownerOrg, vctx.Name())
		if err != nil {
			return err
		}
		if valid {
			return nil
		}
		return def(ctx, key, data, errs, vctx)
	}
}
