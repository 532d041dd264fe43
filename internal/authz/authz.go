// Package authz provides the authorization dispatch layer: named operations
// mapped to authorizers, and gates that overlay extra policy in front of the
// host defaults. Denial is a Verdict value, never an error; errors are
// reserved for lookup failures and malformed requests.
package authz

import (
	"context"
	"errors"

	"github.com/atlas-catalog/atlas/internal/shared"
)

var (
	// ErrValidation marks client-input problems such as a missing object id.
	ErrValidation = errors.New("authz: validation failed")
	// ErrUnknownOperation is returned when no authorizer is registered.
	ErrUnknownOperation = errors.New("authz: unknown operation")
)

// Actor identifies the acting user for an authorization request.
type Actor struct {
	ID   string
	Name string
}

// Request carries the operation payload through an authorizer chain.
type Request struct {
	// Actor is the resolved acting user, nil for anonymous requests.
	Actor *Actor
	// Data mirrors the inbound operation payload keyed by field name.
	Data map[string]any
	// Cache memoizes object lookups within a single request.
	Cache *shared.RequestCache
}

// NewRequest builds a Request with an initialized cache.
func NewRequest(actor *Actor, data map[string]any) *Request {
	return &Request{Actor: actor, Data: data, Cache: shared.NewRequestCache()}
}

// String returns the string value stored under key, if any.
func (r *Request) String(key string) (string, bool) {
	if r == nil || r.Data == nil {
		return "", false
	}
	v, ok := r.Data[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Verdict is the outcome of an authorization check.
type Verdict struct {
	Allowed bool
	Message string
}

// Allow returns an allowing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Deny returns a denying verdict with a human-readable reason.
func Deny(message string) Verdict {
	return Verdict{Allowed: false, Message: message}
}

// Authorizer evaluates one operation request to a verdict.
type Authorizer interface {
	Authorize(ctx context.Context, req *Request) (Verdict, error)
}

// Func adapts a function to the Authorizer interface.
type Func func(ctx context.Context, req *Request) (Verdict, error)

// Authorize implements Authorizer.
func (f Func) Authorize(ctx context.Context, req *Request) (Verdict, error) {
	return f(ctx, req)
}

// Gate wraps the next authorizer in a chain. A gate either returns its own
// verdict or defers to next; the chain terminates at a host default that
// always produces a definitive verdict.
type Gate func(next Authorizer) Authorizer
