package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/peraturan-ai/legalrag/config"
)

// Factory constructs a ChatModel from a provider configuration.
type Factory func(cfg config.ProviderConfig) (ChatModel, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a named provider factory to the registry, overwriting any
// previous registration under the same name. It is intended to be called
// from provider packages' init functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// List returns the names of all registered providers, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs a ChatModel using the named provider's factory.
func New(name string, cfg config.ProviderConfig) (ChatModel, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", name)
	}
	model, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: construct %q: %w", name, err)
	}
	return model, nil
}
