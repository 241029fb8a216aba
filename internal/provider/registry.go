package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps provider names to fetchers
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry creates a registry holding the given fetchers
func NewRegistry(fetchers ...Fetcher) *Registry {
	r := &Registry{fetchers: make(map[string]Fetcher, len(fetchers))}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a fetcher under its Name()
func (r *Registry) Register(f Fetcher) {
	r.fetchers[strings.ToLower(f.Name())] = f
}

// Get returns the fetcher registered under name
func (r *Registry) Get(name string) (Fetcher, error) {
	f, ok := r.fetchers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %s)", name, strings.Join(r.Names(), ", "))
	}
	return f, nil
}

// Names lists registered providers in alphabetical order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Wrap replaces every registered fetcher with wrap(fetcher)
func (r *Registry) Wrap(wrap func(Fetcher) Fetcher) {
	for name, f := range r.fetchers {
		r.fetchers[name] = wrap(f)
	}
}
