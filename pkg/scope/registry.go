package scope

import "fmt"

// Registry is a scope's address book of long-lived typed handles (spec.md
// §4.9 "an address registry (typed handles to long-lived services)"): handles
// registered once by name can be looked up later with Lookup instead of being
// threaded through every function signature. Each Scope gets its own empty
// Registry; Child does not share the parent's.
type Registry struct {
	entries map[string]any
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]any)}
}

// Register binds a name to a handle. Registering the same name twice is a
// programming error (service addresses are fixed at scope construction).
func (r *Registry) Register(name string, handle any) {
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("scope: handle %q already registered", name))
	}
	r.entries[name] = handle
}

// Lookup returns the handle registered under name, type-asserted to T.
func Lookup[T any](r *Registry, name string) (T, bool) {
	var zero T
	handle, ok := r.entries[name]
	if !ok {
		return zero, false
	}
	typed, ok := handle.(T)
	return typed, ok
}
