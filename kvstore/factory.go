package kvstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/statekit/encryption"
	"github.com/kbukum/statekit/logger"
)

// Factory creates a Store from configuration.
type Factory func(cfg Config, log *logger.Logger) (Store, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		ProviderMemory: func(Config, *logger.Logger) (Store, error) { return NewMemoryStore(), nil },
	}
)

// RegisterFactory registers a provider. Provider packages call this from init.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers lists the registered provider names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the Store selected by cfg.Provider. Providers other than
// memory must be imported for side effects, e.g.
// _ "github.com/kbukum/statekit/kvstore/redis".
func New(cfg Config, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kvstore: provider %q not registered", cfg.Provider)
	}

	l := log.WithComponent("kvstore")
	l.Info("initializing store", logger.Fields(logger.FieldProvider, cfg.Provider))
	store, err := f(cfg, l)
	if err != nil || !cfg.Encryption.Enabled() {
		return store, err
	}

	c, err := encryption.New(cfg.Encryption.Key, encryption.WithAlgorithm(encryption.Algorithm(cfg.Encryption.Algorithm)))
	if err != nil {
		store.Close()
		return nil, err
	}
	l.Info("value encryption enabled", logger.Fields("algorithm", cfg.Encryption.Algorithm))
	return NewEncryptedStore(store, c), nil
}
