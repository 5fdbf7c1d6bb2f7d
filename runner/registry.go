package runner

import (
	"sync"

	"github.com/astro-run/constellation-runtime/constellation"
	"github.com/astro-run/constellation-runtime/star"
)

// Registry resolves Constellations, Stars, and Directives by id — the
// Runner's equivalent of runner.py's Foundry lookups
// (foundry.get_constellation/get_star/get_directive). Concurrency-safe:
// registration typically happens at startup but lookups happen on every
// node execution, potentially from parallel fan-out branches.
type Registry struct {
	mu             sync.RWMutex
	constellations map[string]constellation.Constellation
	stars          map[string]constellation.Star
	directives     map[string]constellation.Directive
	implementations map[string]star.Star
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		constellations:  make(map[string]constellation.Constellation),
		stars:           make(map[string]constellation.Star),
		directives:      make(map[string]constellation.Directive),
		implementations: make(map[string]star.Star),
	}
}

// RegisterConstellation adds or replaces a Constellation definition.
func (r *Registry) RegisterConstellation(c constellation.Constellation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constellations[c.ID] = constellation.DefaultConstellation(c)
}

// RegisterStar adds or replaces a Star's static definition and its
// runnable implementation (package star).
func (r *Registry) RegisterStar(def constellation.Star, impl star.Star) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stars[def.ID] = def
	r.implementations[def.ID] = impl
}

// RegisterDirective adds or replaces a Directive.
func (r *Registry) RegisterDirective(d constellation.Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directives[d.ID] = d
}

// GetConstellation looks up a Constellation by id.
func (r *Registry) GetConstellation(id string) (constellation.Constellation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constellations[id]
	return c, ok
}

// GetStar looks up a Star's static definition by id.
func (r *Registry) GetStar(id string) (constellation.Star, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stars[id]
	return s, ok
}

// GetStarImplementation looks up the runnable star.Star behind a Star id.
func (r *Registry) GetStarImplementation(id string) (star.Star, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.implementations[id]
	return impl, ok
}

// GetDirective looks up a Directive by id.
func (r *Registry) GetDirective(id string) (constellation.Directive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.directives[id]
	return d, ok
}
