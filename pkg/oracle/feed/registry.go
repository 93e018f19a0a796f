package feed

import (
	"fmt"
	"sync"

	"tc.com/consensus-oracle/pkg/logging"
)

var (
	registry = make(map[string]AdapterFactory)
	mu       sync.RWMutex
)

// Register adds an adapter factory to the registry
func Register(name string, factory AdapterFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Create creates a new adapter instance by type and name
func Create(sourceType, name string, config map[string]interface{}, logger *logging.Logger) (Adapter, error) {
	mu.RLock()
	defer mu.RUnlock()

	key := fmt.Sprintf("%s.%s", sourceType, name)
	factory, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdapter, key)
	}

	return factory(config, logger)
}

// List returns all registered adapter names
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
