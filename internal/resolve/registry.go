// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import "sort"

// Registry holds the resolvers a host makes available to a Pipeline.
// Populate it at startup; it is not safe for concurrent registration.
type Registry struct {
	resolvers []Resolver
	disabled  map[string]bool
}

// NewRegistry returns a registry holding rs in registration order.
func NewRegistry(rs ...Resolver) *Registry {
	r := &Registry{disabled: map[string]bool{}}
	r.Register(rs...)
	return r
}

// Register appends resolvers. Registration order breaks weight ties.
func (r *Registry) Register(rs ...Resolver) {
	for _, res := range rs {
		if res != nil {
			r.resolvers = append(r.resolvers, res)
		}
	}
}

// Disable excludes resolvers by plugin name.
func (r *Registry) Disable(names ...string) {
	for _, n := range names {
		r.disabled[n] = true
	}
}

// All returns every enabled resolver in registration order.
func (r *Registry) All() []Resolver {
	var out []Resolver
	for _, res := range r.resolvers {
		if !r.disabled[PluginName(res)] {
			out = append(out, res)
		}
	}
	return out
}

// ForPurpose returns the enabled resolvers for p in ascending weight,
// ties kept in registration order.
func (r *Registry) ForPurpose(p Purpose) []Resolver {
	var out []Resolver
	for _, res := range r.All() {
		if res.Purpose() == p {
			out = append(out, res)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight() < out[j].Weight() })
	return out
}
