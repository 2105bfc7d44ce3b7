package gdtf

import "sort"

// Registry holds the loaded profile set, partitioned by source. Iteration
// order is embedded profiles before external ones, each partition sorted
// alphabetically by profile name. The matching engine's first-match-wins
// heuristic depends on this order.
type Registry struct {
	embedded map[string]*Profile
	external map[string]*Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		embedded: make(map[string]*Profile),
		external: make(map[string]*Profile),
	}
}

// Add registers a profile under its name in the partition matching its
// source. A later add with the same name replaces the earlier profile
// within its partition.
func (r *Registry) Add(p *Profile) {
	if p == nil {
		return
	}
	if p.Source == SourceEmbedded {
		r.embedded[p.Name] = p
	} else {
		r.external[p.Name] = p
	}
}

// Get returns the named profile, preferring the embedded partition.
func (r *Registry) Get(name string) (*Profile, bool) {
	if p, ok := r.embedded[name]; ok {
		return p, true
	}
	p, ok := r.external[name]
	return p, ok
}

// Profiles returns all profiles in registry iteration order.
func (r *Registry) Profiles() []*Profile {
	out := make([]*Profile, 0, len(r.embedded)+len(r.external))
	out = append(out, sortedValues(r.embedded)...)
	out = append(out, sortedValues(r.external)...)
	return out
}

// Names returns all profile names in registry iteration order.
func (r *Registry) Names() []string {
	profiles := r.Profiles()
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// Len returns the total number of registered profiles.
func (r *Registry) Len() int {
	return len(r.embedded) + len(r.external)
}

// Merge copies every profile from other into r.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for _, p := range other.Profiles() {
		r.Add(p)
	}
}

func sortedValues(m map[string]*Profile) []*Profile {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Profile, len(names))
	for i, name := range names {
		out[i] = m[name]
	}
	return out
}
