package shard

import (
	"sort"
	"strings"
)

// Registry is the set of shard names known to contain at least one matching
// entity in the current run. The scan driver fills it, the consolidator only
// reads it. Inserts are idempotent, order does not matter.
type Registry struct {
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// NewRegistryFromNames pre-seeds a registry from an explicit name set, used by
// the name-filtered join mode. Names are trimmed and empty entries are skipped
// so that a comma list with spaces still selects the intended shards.
func NewRegistryFromNames(names []string) *Registry {
	registry := NewRegistry()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		registry.Add(name)
	}
	return registry
}

func (r *Registry) Add(name string) {
	r.names[name] = struct{}{}
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.names[name]
	return ok
}

func (r *Registry) Empty() bool {
	return len(r.names) == 0
}

func (r *Registry) Size() int {
	return len(r.names)
}

// Names returns the registered shard names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
