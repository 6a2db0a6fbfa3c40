// Package platforms manages registration and construction of social
// platform adapters.
package platforms

import (
	"fmt"
	"sync"

	"github.com/lepinkainen/multipass/pkg/social"
)

// Account describes one configured platform account: which platform family
// to instantiate, its instance ID, credentials, and adapter-specific
// options (subreddit, feed URL, ...).
type Account struct {
	ID          string
	Platform    string
	Credentials social.Credentials
	Options     map[string]string
}

// Factory creates a platform adapter for one account.
type Factory func(account Account) (social.Platform, error)

// Info contains metadata about a registered platform family.
type Info struct {
	Name        string
	Description string
	Factory     Factory
}

// Registry manages registered platform families.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]*Info
}

// NewRegistry creates an empty platform registry.
func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]*Info)}
}

// Register adds a platform family to the registry.
func (r *Registry) Register(name string, info *Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.platforms[name]; exists {
		return fmt.Errorf("platform %s is already registered", name)
	}

	r.platforms[name] = info
	return nil
}

// Get retrieves a platform family by name.
func (r *Registry) Get(name string) (*Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.platforms[name]
	if !exists {
		return nil, fmt.Errorf("platform %s not found", name)
	}

	return info, nil
}

// List returns all registered platform family names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.platforms))
	for name := range r.platforms {
		names = append(names, name)
	}

	return names
}

// Create instantiates an adapter for the account's platform family.
func (r *Registry) Create(account Account) (social.Platform, error) {
	info, err := r.Get(account.Platform)
	if err != nil {
		return nil, err
	}

	return info.Factory(account)
}

// DefaultRegistry is the global registry adapters self-register into.
var DefaultRegistry = NewRegistry()
