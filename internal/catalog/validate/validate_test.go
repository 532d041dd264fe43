package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/atlas-catalog/atlas/internal/authz"
)

func TestContextNamePrefersResolvedActor(t *testing.T) {
	c := &Context{Actor: &authz.Actor{ID: "u-1", Name: "alice"}, Username: "stale"}
	if c.Name() != "alice" {
		t.Fatalf("expected resolved actor name, got %q", c.Name())
	}
	c = &Context{Username: "bob"}
	if c.Name() != "bob" {
		t.Fatalf("expected username fallback, got %q", c.Name())
	}
	var missing *Context
	if missing.Name() != "" {
		t.Fatalf("expected empty name for nil context, got %q", missing.Name())
	}
}

func TestNotEmpty(t *testing.T) {
	errs := make(Errors)
	if err := NotEmpty(context.Background(), "name", map[string]any{"name": "  "}, errs, nil); err != nil {
		t.Fatalf("not empty: %v", err)
	}
	if len(errs["name"]) != 1 {
		t.Fatalf("expected missing value error, got %v", errs)
	}

	errs = make(Errors)
	if err := NotEmpty(context.Background(), "name", map[string]any{"name": "ok"}, errs, nil); err != nil {
		t.Fatalf("not empty: %v", err)
	}
	if errs.HasErrors() {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestMaxLength(t *testing.T) {
	check := MaxLength(5)
	errs := make(Errors)
	if err := check(context.Background(), "title", map[string]any{"title": "too long title"}, errs, nil); err != nil {
		t.Fatalf("max length: %v", err)
	}
	if len(errs["title"]) != 1 {
		t.Fatalf("expected length error, got %v", errs)
	}
}

func TestMungeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Data Set", "my-data-set"},
		{"Café données", "cafe-donnees"},
		{"--weird__name--", "weird__name"},
		{"UPPER case 42", "upper-case-42"},
	}
	for _, tc := range cases {
		data := map[string]any{"name": tc.in}
		errs := make(Errors)
		if err := MungeName(context.Background(), "name", data, errs, nil); err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if errs.HasErrors() {
			t.Fatalf("%q: unexpected errors %v", tc.in, errs)
		}
		if data["name"] != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, data["name"])
		}
	}
}

func TestMungeNameRejectsSymbolOnlyNames(t *testing.T) {
	data := map[string]any{"name": "!!!"}
	errs := make(Errors)
	if err := MungeName(context.Background(), "name", data, errs, nil); err != nil {
		t.Fatalf("munge: %v", err)
	}
	if len(errs["name"]) != 1 {
		t.Fatalf("expected error for symbol-only name, got %v", errs)
	}
}

func TestSchemaReplaceAndLookup(t *testing.T) {
	base := func(_ context.Context, key string, data map[string]any, errs Errors, _ *Context) error {
		errs.Add(key, "base")
		return nil
	}
	schema := Schema{"owner_org": {{Name: "rule", Check: base}}}

	if _, ok := schema.Lookup("owner_org", "rule"); !ok {
		t.Fatalf("expected lookup to find the validator")
	}
	if _, ok := schema.Lookup("owner_org", "missing"); ok {
		t.Fatalf("expected lookup miss for unknown name")
	}

	replaced := schema.Replace("owner_org", "rule", func(_ context.Context, key string, data map[string]any, errs Errors, _ *Context) error {
		errs.Add(key, "replacement")
		return nil
	})
	if !replaced {
		t.Fatalf("expected replacement to happen")
	}

	errs, err := schema.Apply(context.Background(), map[string]any{}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(errs["owner_org"]) != 1 || errs["owner_org"][0] != "replacement" {
		t.Fatalf("expected only the replacement to run, got %v", errs)
	}
}

func TestSchemaCloneIsolatesOverlays(t *testing.T) {
	schema := Schema{"name": {{Name: "not_empty", Check: NotEmpty}}}
	clone := schema.Clone()
	clone.Replace("name", "not_empty", func(_ context.Context, key string, data map[string]any, errs Errors, _ *Context) error {
		return nil
	})

	errs, err := schema.Apply(context.Background(), map[string]any{"name": ""}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !errs.HasErrors() {
		t.Fatalf("expected base schema to keep its validator")
	}
}

func TestApplyAbortsOnCollaboratorError(t *testing.T) {
	boom := errors.New("lookup failed")
	schema := Schema{"owner_org": {{Name: "rule", Check: func(_ context.Context, _ string, _ map[string]any, _ Errors, _ *Context) error {
		return boom
	}}}}

	_, err := schema.Apply(context.Background(), map[string]any{}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
}

func TestErrorsSummaryIsStable(t *testing.T) {
	errs := make(Errors)
	errs.Add("name", "missing value")
	errs.Add("owner_org", "not allowed")
	if got := errs.Summary(); got != "name: missing value, owner_org: not allowed" {
		t.Fatalf("unexpected summary: %q", got)
	}
}
