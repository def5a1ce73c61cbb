package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Kind)
	registryMu sync.RWMutex
)

// Register adds a kind to the registry.
// Panics if a kind with the same key is already registered.
func Register(k Kind) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[k.Key]; exists {
		panic(fmt.Sprintf("kind already registered: %s", k.Key))
	}
	if k.Table == "" {
		panic(fmt.Sprintf("kind %s has no table", k.Key))
	}
	if k.Unique != "" {
		if _, ok := k.Column(k.Unique); !ok {
			panic(fmt.Sprintf("kind %s: unique column %s is not declared", k.Key, k.Unique))
		}
	}

	registry[k.Key] = k
}

// Lookup returns a kind by key (eventRegistration, contact, newsletter).
func Lookup(key string) (Kind, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	k, ok := registry[key]
	return k, ok
}

// Kinds returns all registered kinds in display order.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Kind, 0, len(registry))
	for _, k := range registry {
		result = append(result, k)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Key < result[j].Key
	})

	return result
}
