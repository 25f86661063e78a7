// Package extension implements the host-side extension registry
// handlers suspend into via ext_suspend: a common Extension interface,
// a name→extension Registry the engine façade and host functions
// consult, and two concrete extensions (ext:http, ext:kv).
//
// Grounded on original_source/.../host_functions/extension.rs for the
// existence/method-check contract, and on SPEC_FULL.md §10 for the
// two concrete extensions this repo wires in.
package extension

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/justapithecus/panelrt/value"
)

// Extension is a host-provided module a handler can suspend into by
// name and method. Call is synchronous from the host's point of view;
// the guest-visible suspend/resume dance is the engine's job, not the
// extension's.
type Extension interface {
	// Methods returns the extension's registered method names.
	Methods() []string
	// Call invokes method with args, returning the result value or an
	// error. Implementations should return an error for an unknown
	// method rather than panicking.
	Call(ctx context.Context, method string, args []value.Value) (value.Value, error)
}

// Registry is the name→Extension lookup the engine façade builds once
// at startup and hands to both the host-function layer (for
// existence/method checks) and host-side auto-resume callers (for the
// actual synchronous Call).
type Registry struct {
	mu   sync.RWMutex
	exts map[string]Extension
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{exts: make(map[string]Extension)}
}

// Register adds or replaces the extension under name.
func (r *Registry) Register(name string, ext Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exts[name] = ext
}

// Exists reports whether an extension is registered under name.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.exts[name]
	return ok
}

// Methods returns the method names registered on name, or nil if name
// is not registered.
func (r *Registry) Methods(name string) []string {
	r.mu.RLock()
	ext, ok := r.exts[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return ext.Methods()
}

// HasMethod reports whether name has a method registered under
// method.
func (r *Registry) HasMethod(name, method string) bool {
	for _, m := range r.Methods(name) {
		if m == method {
			return true
		}
	}
	return false
}

// List returns every registered extension name, sorted for
// deterministic output (ext_list and CLI/TUI consumption).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.exts))
	for name := range r.exts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches to the named extension's method, returning
// ErrExtensionNotFound/ErrMethodNotFound if the target doesn't exist.
// This is the host-side synchronous call path; the guest never calls
// this directly, it only suspends.
func (r *Registry) Call(ctx context.Context, name, method string, args []value.Value) (value.Value, error) {
	r.mu.RLock()
	ext, ok := r.exts[name]
	r.mu.RUnlock()
	if !ok {
		return value.Null, fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}
	if !r.HasMethod(name, method) {
		return value.Null, fmt.Errorf("%w: %s.%s", ErrMethodNotFound, name, method)
	}
	return ext.Call(ctx, method, args)
}

// ErrExtensionNotFound is returned by Registry.Call for an
// unregistered extension name.
var ErrExtensionNotFound = fmt.Errorf("extension not found")

// ErrMethodNotFound is returned by Registry.Call for an unregistered
// method on a registered extension.
var ErrMethodNotFound = fmt.Errorf("method not found")
