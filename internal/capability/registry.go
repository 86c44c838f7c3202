// Package capability provides the explicit name-to-handler registry used
// to dispatch subtasks to the domain actions that perform their effect.
package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrHandlerNotFound indicates a subtask names a capability that was never
// registered. This is a configuration defect and is never retried.
var ErrHandlerNotFound = errors.New("capability handler not found")

// Result is what a handler returns after performing a subtask's effect.
type Result struct {
	// Success indicates the handler completed the action.
	Success bool
	// Payload is the opaque result data stored on the subtask.
	Payload map[string]any
	// Message optionally describes the outcome.
	Message string
}

// Handler performs the effect of one named capability. Handlers own their
// idempotence: the executor may invoke the same handler more than once for
// the same subtask due to retries, and must be able to abandon a call that
// exceeds its timeout while the underlying operation still runs.
type Handler interface {
	Execute(ctx context.Context, params map[string]any, tenant string) (*Result, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, params map[string]any, tenant string) (*Result, error)

// Execute calls the wrapped function.
func (f HandlerFunc) Execute(ctx context.Context, params map[string]any, tenant string) (*Result, error) {
	return f(ctx, params, tenant)
}

// Registry maps capability names to their handlers. The handler set is
// statically inspectable via Names.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a capability name, replacing any previous
// binding for the same name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Resolve returns the handler for a capability name. A miss returns an
// error wrapping ErrHandlerNotFound with the name for diagnostics.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	return h, nil
}

// Names returns the registered capability names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// invokeOutcome carries a handler's return values across the goroutine
// boundary in Invoke.
type invokeOutcome struct {
	res *Result
	err error
}

// Invoke runs a handler and enforces the context deadline even against a
// handler that never checks its context: the call runs in a goroutine and
// Invoke returns ctx.Err() as soon as the context ends. A result arriving
// after that is discarded; the underlying operation may still be running,
// which is why handlers must be idempotent.
func Invoke(ctx context.Context, h Handler, params map[string]any, tenant string) (*Result, error) {
	done := make(chan invokeOutcome, 1)
	go func() {
		res, err := h.Execute(ctx, params, tenant)
		done <- invokeOutcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
