package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownKind is returned for an upload kind that is not registered.
var ErrUnknownKind = errors.New("unknown upload kind")

var (
	registry   = make(map[string]KindDefinition)
	registryMu sync.RWMutex
)

// Register adds an upload kind to the registry.
// Panics if a kind with the same key is already registered.
func Register(def KindDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("upload kind already registered: %s", def.Info.Key))
	}

	// Populate Columns from FieldSpecs if not set
	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}

	registry[def.Info.Key] = def
}

// Get returns a kind definition by key.
// Returns false if not found.
func Get(key string) (KindDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Lookup is Get with an ErrUnknownKind error.
func Lookup(key string) (KindDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return KindDefinition{}, fmt.Errorf("%w: %q", ErrUnknownKind, key)
	}
	return def, nil
}

// All returns all registered kinds sorted by key.
func All() []KindDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]KindDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// KindCount returns the number of registered kinds.
func KindCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
