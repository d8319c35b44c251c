package chains

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages chain backends for the supported networks. It is
// explicitly constructed and injected into the orchestration layer; there is
// no process-wide instance.
type Registry struct {
	backends map[string]Backend
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

// Register registers a chain backend (uses backend.ChainID() as key).
// If a backend already exists for the chain, it is replaced (idempotent).
func (r *Registry) Register(backend Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backends[backend.ChainID()] = backend
	return nil
}

// Get retrieves a chain backend by chain id.
func (r *Registry) Get(chainID string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, exists := r.backends[chainID]
	if !exists {
		return nil, fmt.Errorf("no backend registered for chain: %s", chainID)
	}

	return backend, nil
}

// SupportedChains returns a sorted list of all registered chain ids.
func (r *Registry) SupportedChains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chains := make([]string, 0, len(r.backends))
	for chainID := range r.backends {
		chains = append(chains, chainID)
	}
	sort.Strings(chains)
	return chains
}

// IsSupported checks if a chain id is registered.
func (r *Registry) IsSupported(chainID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.backends[chainID]
	return exists
}

// Unregister removes a chain backend (useful for testing).
func (r *Registry) Unregister(chainID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.backends, chainID)
}
