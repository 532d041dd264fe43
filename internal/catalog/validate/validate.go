// Package validate implements the field-validator pipeline used for package
// create and update payloads. Validators run in order per field, may rewrite
// the value in place, and report problems through a shared accumulator keyed
// by field name.
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/atlas-catalog/atlas/internal/authz"
)

// Errors accumulates validation messages per field.
type Errors map[string][]string

// Add appends a message for the field.
func (e Errors) Add(key, message string) {
	e[key] = append(e[key], message)
}

// HasErrors reports whether any field collected a message.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Summary flattens the accumulator into a single line for error wrapping.
func (e Errors) Summary() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e[k], "; ")))
	}
	return strings.Join(parts, ", ")
}

// Context carries the acting user through a validation pass. Actor is the
// already-resolved user object when available; Username is the plain
// fallback.
type Context struct {
	Actor    *authz.Actor
	Username string
}

// Name returns the acting username, preferring the resolved actor.
func (c *Context) Name() string {
	if c == nil {
		return ""
	}
	if c.Actor != nil {
		return c.Actor.Name
	}
	return c.Username
}

// FieldValidator checks (and may rewrite) one field of the payload,
// appending to errs on failure. A returned error is a collaborator failure
// (for example a role lookup), not a validation outcome, and aborts the
// pass.
type FieldValidator func(ctx context.Context, key string, data map[string]any, errs Errors, vctx *Context) error

// Named pairs a validator with a stable name so schema overlays can replace
// specific entries.
type Named struct {
	Name  string
	Check FieldValidator
}

// Schema maps field names to their ordered validator lists.
type Schema map[string][]Named

// Lookup returns the validator registered under name on the given field.
func (s Schema) Lookup(field, name string) (FieldValidator, bool) {
	for _, v := range s[field] {
		if v.Name == name {
			return v.Check, true
		}
	}
	return nil, false
}

// Replace swaps the validator registered under name on the given field. It
// reports whether a replacement happened.
func (s Schema) Replace(field, name string, check FieldValidator) bool {
	replaced := false
	for i, v := range s[field] {
		if v.Name == name {
			s[field][i] = Named{Name: name, Check: check}
			replaced = true
		}
	}
	return replaced
}

// Clone returns a deep copy so per-request overlays do not leak into the
// base schema.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for field, vs := range s {
		cp := make([]Named, len(vs))
		copy(cp, vs)
		out[field] = cp
	}
	return out
}

// Apply runs every validator against the payload and returns the
// accumulated errors.
func (s Schema) Apply(ctx context.Context, data map[string]any, vctx *Context) (Errors, error) {
	errs := make(Errors)
	fields := make([]string, 0, len(s))
	for field := range s {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		for _, v := range s[field] {
			if err := v.Check(ctx, field, data, errs, vctx); err != nil {
				return nil, err
			}
		}
	}
	return errs, nil
}
