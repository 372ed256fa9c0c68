package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// LoaderConstructor returns a new, not yet connected loader.
type LoaderConstructor func() Loader

// Factory - registry of loader constructors keyed by Config.Type
type Factory struct {
	registry map[string]LoaderConstructor
	mu       sync.RWMutex
}

// NewFactory creates an empty factory
func NewFactory() *Factory {
	return &Factory{
		registry: make(map[string]LoaderConstructor),
	}
}

// Register registers a constructor for dbType.
//
// Example (pkg/adapters/mssql/adapter.go):
//
//	func init() {
//	    adapters.Register("mssql", func() adapters.Loader {
//	        return &Adapter{}
//	    })
//	}
func (f *Factory) Register(dbType string, constructor LoaderConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[dbType] = constructor
}

// Unregister removes the constructor for dbType
func (f *Factory) Unregister(dbType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registry, dbType)
}

// IsRegistered reports whether dbType has a constructor
func (f *Factory) IsRegistered(dbType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.registry[dbType]
	return ok
}

// GetRegisteredTypes returns the registered types in sorted order
func (f *Factory) GetRegisteredTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.registry))
	for dbType := range f.registry {
		types = append(types, dbType)
	}
	sort.Strings(types)
	return types
}

// Create builds the loader for cfg.Type and connects it.
// An empty Type selects "mssql".
func (f *Factory) Create(ctx context.Context, cfg Config) (Loader, error) {
	loader, err := f.CreateWithoutConnect(cfg.Type)
	if err != nil {
		return nil, err
	}

	if err := loader.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg, err)
	}

	return loader, nil
}

// CreateWithoutConnect builds the loader for dbType without connecting
func (f *Factory) CreateWithoutConnect(dbType string) (Loader, error) {
	if dbType == "" {
		dbType = "mssql"
	}

	f.mu.RLock()
	constructor, ok := f.registry[dbType]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown database type: %s (available types: %v)",
			dbType, f.GetRegisteredTypes())
	}

	return constructor(), nil
}

// ========== Global Factory ==========

var globalFactory = NewFactory()

// Register registers a loader in the global factory.
// Usually called from an init function of the adapter package.
func Register(dbType string, constructor LoaderConstructor) {
	globalFactory.Register(dbType, constructor)
}

// Unregister removes a loader from the global factory
func Unregister(dbType string) {
	globalFactory.Unregister(dbType)
}

// IsRegistered checks the global factory
func IsRegistered(dbType string) bool {
	return globalFactory.IsRegistered(dbType)
}

// GetRegisteredTypes lists the global factory types
func GetRegisteredTypes() []string {
	return globalFactory.GetRegisteredTypes()
}

// New creates and connects a loader through the global factory.
//
// Example:
//
//	cfg, err := adapters.FromEnv(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loader, err := adapters.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loader.Close(ctx)
func New(ctx context.Context, cfg Config) (Loader, error) {
	return globalFactory.Create(ctx, cfg)
}

// NewWithoutConnect creates a loader through the global factory without connecting
func NewWithoutConnect(dbType string) (Loader, error) {
	return globalFactory.CreateWithoutConnect(dbType)
}
