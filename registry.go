package lumber

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nilpntr/lumber/lumbertype"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]BridgeFactory{
		NopBridgeName: nopFactory,
	}
)

// RegisterBridge makes a bridge factory available under name for
// Config.BridgeName. Registering a name twice is an error.
func RegisterBridge(name string, factory BridgeFactory) error {
	if factory == nil {
		return fmt.Errorf("register %q: %w", name, lumbertype.ErrNilBridgeFactory)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("register %q: %w", name, lumbertype.ErrBridgeAlreadyRegistered)
	}
	registry[name] = factory
	return nil
}

// LookupBridge returns the factory registered under name.
func LookupBridge(name string) (BridgeFactory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", lumbertype.ErrBridgeNotFound, name)
	}
	return factory, nil
}

// Bridges returns the registered bridge names in sorted order.
func Bridges() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
