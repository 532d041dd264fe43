package catalog

import (
	"context"

	"github.com/atlas-catalog/atlas/internal/catalog/validate"
	"github.com/atlas-catalog/atlas/internal/orgs"
)

// ValidatorOwnerOrg names the owner_org schema slot so overlays can replace
// the default rule with their own.
const ValidatorOwnerOrg = "owner_org_validator"

// DefaultOwnerOrgValidator enforces the built-in owner_org rule: when set,
// the field must name an organization in which the acting user may create
// datasets.
func DefaultOwnerOrgValidator(roles RoleDirectory) validate.FieldValidator {
	return func(ctx context.Context, key string, data map[string]any, errs validate.Errors, vctx *validate.Context) error {
		ownerOrg, _ := data[key].(string)
		if ownerOrg == "" {
			return nil
		}
		role, err := roles.RoleFor(ctx, ownerOrg, vctx.Name())
		if err != nil {
			return err
		}
		if role.Implies(orgs.PermCreateDataset) {
			return nil
		}
		errs.Add(key, "you cannot add a dataset to this organization")
		return nil
	}
}

// PackageSchema builds the validator pipeline applied to package create and
// update payloads.
func PackageSchema(roles RoleDirectory) validate.Schema {
	return validate.Schema{
		"name": {
			{Name: "not_empty", Check: validate.NotEmpty},
			{Name: "munge_name", Check: validate.MungeName},
			{Name: "max_length", Check: validate.MaxLength(100)},
		},
		"title": {
			{Name: "max_length", Check: validate.MaxLength(200)},
		},
		"owner_org": {
			{Name: ValidatorOwnerOrg, Check: DefaultOwnerOrgValidator(roles)},
		},
	}
}
