package sources

import "github.com/leadscout/leadscout/internal/models"

// Registry is the static lookup of platform sources, populated once at
// process start and read-only afterwards. Registering a new Source here is
// the only step needed to add a platform.
type Registry struct {
	order   []string
	sources map[string]Source
}

// NewRegistry builds a registry from the given sources, preserving their
// registration order for fan-out and discovery.
func NewRegistry(srcs ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(srcs))}
	for _, src := range srcs {
		if _, exists := r.sources[src.Name()]; exists {
			continue
		}
		r.order = append(r.order, src.Name())
		r.sources[src.Name()] = src
	}
	return r
}

// Get returns the source registered under the platform id.
func (r *Registry) Get(platform string) (Source, bool) {
	src, ok := r.sources[platform]
	return src, ok
}

// IDs lists registered platform ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Info lists id and display name for every registered platform.
func (r *Registry) Info() []models.PlatformInfo {
	infos := make([]models.PlatformInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.sources[id].Info())
	}
	return infos
}
