package state

import "sync"

// Registry shares live objects between phases running in one process.
type Registry struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]any)}
}

// Put stores v under name, replacing any previous value.
func (r *Registry) Put(name string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[name] = v
}

// Get returns the value stored under name.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[name]
	return v, ok
}

// Remove deletes name and returns its previous value.
func (r *Registry) Remove(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[name]
	delete(r.items, name)
	return v, ok
}

// Lookup returns the value under name if it exists and has type T.
func Lookup[T any](r *Registry, name string) (T, bool) {
	v, ok := r.Get(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
