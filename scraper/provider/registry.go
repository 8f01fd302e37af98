package provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

type Info struct {
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`
}

type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.Name()]; ok {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.providers))
}

func (r *Registry) List() []Info {
	names := r.Names()
	infos := make([]Info, 0, len(names))
	for _, n := range names {
		p, _ := r.Get(n)
		infos = append(infos, Info{Name: n, Capabilities: p.Capabilities()})
	}
	return infos
}

// Searchers returns every provider able to search, in name order.
func (r *Registry) Searchers() []Searcher {
	var out []Searcher
	for _, n := range r.Names() {
		p, _ := r.Get(n)
		if s, ok := p.(Searcher); ok && Has(p, CapSearch) {
			out = append(out, s)
		}
	}
	return out
}
