package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all resource kinds in the application. Kinds are
// registered during startup; once ValidateAll has passed the registry is
// treated as immutable and is safe for unlimited concurrent readers.
type Registry struct {
	kinds map[string]*Kind
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]*Kind),
	}
}

// Register adds a kind to the registry after structural validation
func (r *Registry) Register(kind *Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind.Name]; exists {
		return fmt.Errorf("kind %s is already registered", kind.Name)
	}

	if err := validateStructural(kind); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", kind.Name, err)
	}

	r.kinds[kind.Name] = kind
	return nil
}

// Get retrieves a kind by name
func (r *Registry) Get(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kind, exists := r.kinds[name]
	return kind, exists
}

// Exists checks if a kind is registered
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.kinds[name]
	return exists
}

// List returns all kind names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the kind map
func (r *Registry) All() map[string]*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Kind, len(r.kinds))
	for name, kind := range r.kinds {
		result[name] = kind
	}
	return result
}

// Count returns the number of registered kinds
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.kinds)
}

// ValidateAll performs cross-kind validation: every reference field must
// name a registered target kind, and every reverse collection must name a
// TypeRef field on its target that points back at the source. Cycles
// between kinds are permitted; traversal depth is bounded at query time.
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, kind := range r.kinds {
		for _, f := range kind.Fields {
			if !f.Type.IsReference() {
				continue
			}

			target, ok := r.kinds[f.Target]
			if !ok {
				return fmt.Errorf("kind %s: field %s references unknown kind %s",
					kind.Name, f.Name, f.Target)
			}

			if f.Type == TypeRefList {
				via, ok := target.Field(f.Via)
				if !ok {
					return fmt.Errorf("kind %s: field %s: target %s has no field %s",
						kind.Name, f.Name, f.Target, f.Via)
				}
				if via.Type != TypeRef || via.Target != kind.Name {
					return fmt.Errorf("kind %s: field %s: %s.%s is not a reference back to %s",
						kind.Name, f.Name, f.Target, f.Via, kind.Name)
				}
			}
		}
	}

	return nil
}
