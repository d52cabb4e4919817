package mapview

import "sort"

type entry struct {
	handle Handle
	spec   LayerSpec
	static bool
}

// Registry maps stable entity keys to surface handles. It is not safe for
// concurrent use; the engine serialises access.
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

func (r *Registry) get(key string) (entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

func (r *Registry) put(key string, e entry) { r.entries[key] = e }

func (r *Registry) remove(key string) { delete(r.entries, key) }

// Len returns the number of registered layers.
func (r *Registry) Len() int { return len(r.entries) }

// Handle returns the handle registered for key.
func (r *Registry) Handle(key string) (Handle, bool) {
	e, ok := r.entries[key]
	return e.handle, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Specs returns the registered specs in key order.
func (r *Registry) Specs() []LayerSpec {
	out := make([]LayerSpec, 0, len(r.entries))
	for _, k := range r.Keys() {
		out = append(out, r.entries[k].spec.clone())
	}
	return out
}
