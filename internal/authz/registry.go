package authz

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps operation names to their authorizer chains. Host defaults are
// registered at startup; plugins overlay gates on top of them. After startup
// the table is read-only.
type Registry struct {
	mu       sync.RWMutex
	ops      map[string]Authorizer
	observer func(op string, allowed bool)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Authorizer)}
}

// Register sets the authorizer for an operation, replacing any existing one.
func (r *Registry) Register(op string, a Authorizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op] = a
}

// Override wraps the registered authorizer for op with the given gate. The
// operation must already have a default registered so the gate has a handler
// to fall through to.
func (r *Registry) Override(op string, gate Gate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, ok := r.ops[op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	r.ops[op] = gate(next)
	return nil
}

// SetObserver installs a callback invoked with every verdict, used to feed
// decision metrics. Call before serving traffic.
func (r *Registry) SetObserver(fn func(op string, allowed bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Authorize dispatches the request to the chain registered for op.
func (r *Registry) Authorize(ctx context.Context, op string, req *Request) (Verdict, error) {
	r.mu.RLock()
	a, ok := r.ops[op]
	observer := r.observer
	r.mu.RUnlock()
	if !ok {
		return Deny(""), fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	verdict, err := a.Authorize(ctx, req)
	if err == nil && observer != nil {
		observer(op, verdict.Allowed)
	}
	return verdict, err
}

// Operations returns the registered operation names, sorted.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]string, 0, len(r.ops))
	for op := range r.ops {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
