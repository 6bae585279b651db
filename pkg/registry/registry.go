// Package registry provides a concurrency-safe name → value lookup table.
// The engine uses it for AI providers and for game definitions.
package registry

import (
	"fmt"
	"slices"
	"sync"
)

// Registry manages named entries of type T.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// New creates a new empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
	}
}

// Register adds an entry to the registry.
// If an entry with the same name exists, it is overwritten.
func (r *Registry[T]) Register(name string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = v
}

// Lookup returns the entry registered under name.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[name]
	return v, ok
}

// MustLookup is like Lookup but returns an error naming the missing entry.
func (r *Registry[T]) MustLookup(name string) (T, error) {
	v, ok := r.Lookup(name)
	if !ok {
		return v, fmt.Errorf("not registered: %s", name)
	}
	return v, nil
}

// Remove deletes name from the registry.
func (r *Registry[T]) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
