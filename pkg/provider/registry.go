package provider

import (
	"sync"

	"github.com/go-chi/chi/v5"
)

// Registry maps provider names to adapters. It is slice-backed: lookups are
// O(n) over registered providers, which stays in the single digits, and
// deterministic by name equality.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider. Registering a name twice returns
// ErrAlreadyRegistered; Deregister first to replace an adapter.
func (r *Registry) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return ErrEmptyProviderName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.providers {
		if existing.Name() == p.Name() {
			return ErrAlreadyRegistered
		}
	}
	r.providers = append(r.providers, p)
	return nil
}

// Deregister removes the provider with the given name, if present.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.providers[:0]
	for _, p := range r.providers {
		if p.Name() != name {
			kept = append(kept, p)
		}
	}
	r.providers = kept
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// List returns a snapshot of the registered providers.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Initialize lets every registered provider wire its login and callback
// routes, handing each one the token issuer so its callback can mint the
// session token after a successful handshake.
func (r *Registry) Initialize(router chi.Router, issuer TokenIssuer) {
	for _, p := range r.List() {
		p.Initialize(router, issuer)
	}
}
