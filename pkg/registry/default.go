package registry

import (
	"context"
	"sync"

	"github.com/intentwire/intents-bridge/pkg/intent"
)

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating a bare one (no syncer,
// no manifest, no platform gate) on first use. Apps embedding the bridge
// in-process register against this instance.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry(NewRegistryParams{})
	}
	return defaultRegistry
}

// SetDefault replaces the process-wide registry, e.g. with one wired to a
// shortcut syncer and manifest. Intended for startup, before any
// package-level calls.
func SetDefault(r *Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = r
}

// Register registers intents on the default registry.
func Register(ctx context.Context, regs ...Registration) error {
	return Default().Register(ctx, regs...)
}

// Unregister removes an intent from the default registry.
func Unregister(ctx context.Context, identifier string) bool {
	return Default().Unregister(ctx, identifier)
}

// Lookup resolves an identifier on the default registry.
func Lookup(identifier string) (Registration, bool) {
	return Default().Lookup(identifier)
}

// List returns the default registry's descriptors in registration order.
func List() []intent.Descriptor {
	return Default().List()
}

// Clear removes every registration from the default registry.
func Clear(ctx context.Context) int {
	return Default().Clear(ctx)
}
