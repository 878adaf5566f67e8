// Package registry implements the authoritative intent table: the mapping
// from intent identifier to descriptor and handler that the dispatcher
// resolves invocations against.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/intentwire/intents-bridge/pkg/events"
	"github.com/intentwire/intents-bridge/pkg/intent"
	"github.com/intentwire/intents-bridge/pkg/manifest"
	"github.com/intentwire/intents-bridge/pkg/platform"
)

const logPrefix = "registry:registry"

// Registration pairs an intent descriptor with the handler that serves it.
type Registration struct {
	Descriptor intent.Descriptor
	Handler    intent.Handler
}

// table is an immutable registry snapshot. Writers build a replacement and
// swap the pointer; lookups read the current table without locking, so an
// invocation in flight keeps the registration it resolved even if the entry
// is replaced or removed underneath it.
type table struct {
	order   []string
	entries map[string]Registration
}

var emptyTable = &table{entries: map[string]Registration{}}

func (t *table) clone() *table {
	entries := make(map[string]Registration, len(t.entries)+1)
	for id, reg := range t.entries {
		entries[id] = reg
	}
	order := make([]string, len(t.order), len(t.order)+1)
	copy(order, t.order)
	return &table{order: order, entries: entries}
}

// Registry maintains the identifier -> registration mapping. Writes are
// serialized; reads are wait-free.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[table]

	syncer   events.ShortcutSyncer
	manifest *manifest.Resolved
	host     *platform.Host
}

// NewRegistry creates a new Registry instance.
func NewRegistry(params NewRegistryParams) *Registry {
	syncer := params.Syncer
	if syncer == nil {
		syncer = &events.NoOpPublisher{}
	}

	r := &Registry{
		syncer:   syncer,
		manifest: params.Manifest,
		host:     params.Host,
	}
	r.current.Store(emptyTable)
	return r
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	// Syncer receives a shortcut change event after every mutation. Nil
	// means no events.
	Syncer events.ShortcutSyncer
	// Manifest is the compiled-intent set used for discoverability
	// reconciliation. Nil treats every intent as compiled.
	Manifest *manifest.Resolved
	// Host gates per-intent minimum OS versions. Nil disables the gate.
	Host *platform.Host
}

// Register adds or replaces one or more registrations as a single atomic
// batch. Every descriptor is validated first; any failure rejects the whole
// batch with no partial registration. Replacing an existing identifier keeps
// its original position in registration order; duplicate identifiers within
// one batch resolve last-wins. After the table is swapped a shortcut sync is
// triggered; sync failures are logged, never returned.
func (r *Registry) Register(ctx context.Context, regs ...Registration) error {
	if len(regs) == 0 {
		return nil
	}

	normalized := make([]Registration, len(regs))
	for i, reg := range regs {
		desc, verr := reg.Descriptor.Normalized()
		if verr != nil {
			return verr
		}
		for _, p := range reg.Descriptor.Parameters {
			if !p.IsOptional && p.DefaultValue != nil {
				slog.Warn(fmt.Sprintf("%s - intent %q: ignoring default on required parameter %q", logPrefix, desc.Identifier, p.Name))
			}
		}
		if err := platform.ValidRequirement(desc.MinimumOSVersion); err != nil {
			return &intent.Error{
				Code:    intent.CodeValidationFailed,
				Message: fmt.Sprintf("intent %q: invalid minimumOSVersion: %v", desc.Identifier, err),
				Intent:  desc.Identifier,
			}
		}
		if reg.Handler == nil {
			return &intent.Error{
				Code:    intent.CodeValidationFailed,
				Message: fmt.Sprintf("intent %q has no handler", desc.Identifier),
				Intent:  desc.Identifier,
			}
		}
		normalized[i] = Registration{Descriptor: desc, Handler: reg.Handler}
	}

	r.mu.Lock()
	next := r.current.Load().clone()
	for _, reg := range normalized {
		id := reg.Descriptor.Identifier
		if _, exists := next.entries[id]; !exists {
			next.order = append(next.order, id)
		}
		next.entries[id] = reg
	}
	r.current.Store(next)
	total := len(next.entries)
	r.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - Registered %d intent(s), %d total", logPrefix, len(normalized), total))
	r.syncAfterMutation(ctx)
	return nil
}

// Unregister removes the entry if present and reports whether it was
// removed. Unregistering an absent identifier is a no-op.
func (r *Registry) Unregister(ctx context.Context, identifier string) bool {
	r.mu.Lock()
	cur := r.current.Load()
	if _, ok := cur.entries[identifier]; !ok {
		r.mu.Unlock()
		return false
	}

	entries := make(map[string]Registration, len(cur.entries)-1)
	order := make([]string, 0, len(cur.order)-1)
	for _, id := range cur.order {
		if id == identifier {
			continue
		}
		entries[id] = cur.entries[id]
		order = append(order, id)
	}
	r.current.Store(&table{order: order, entries: entries})
	r.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - Unregistered intent %q", logPrefix, identifier))
	r.syncAfterMutation(ctx)
	return true
}

// Clear removes every registration and returns how many were removed.
func (r *Registry) Clear(ctx context.Context) int {
	r.mu.Lock()
	removed := len(r.current.Load().entries)
	if removed == 0 {
		r.mu.Unlock()
		return 0
	}
	r.current.Store(emptyTable)
	r.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - Cleared %d intent(s)", logPrefix, removed))
	r.syncAfterMutation(ctx)
	return removed
}

// Lookup returns the registration for an identifier. The returned value is a
// snapshot: it stays valid for the caller even if the entry is later
// replaced or removed.
func (r *Registry) Lookup(identifier string) (Registration, bool) {
	reg, ok := r.current.Load().entries[identifier]
	return reg, ok
}

// IsRegistered reports whether an identifier is currently registered.
func (r *Registry) IsRegistered(identifier string) bool {
	_, ok := r.Lookup(identifier)
	return ok
}

// List returns the current descriptors in registration order. Handlers are
// not exposed.
func (r *Registry) List() []intent.Descriptor {
	cur := r.current.Load()
	descs := make([]intent.Descriptor, 0, len(cur.order))
	for _, id := range cur.order {
		descs = append(descs, cur.entries[id].Descriptor)
	}
	return descs
}

// Count returns the number of registered intents.
func (r *Registry) Count() int {
	return len(r.current.Load().entries)
}

// syncAfterMutation pushes the new binding states to the host. Failures are
// logged; mutations never fail because of the sync.
func (r *Registry) syncAfterMutation(ctx context.Context) {
	if _, err := r.SyncShortcuts(ctx); err != nil {
		slog.Warn(fmt.Sprintf("%s - shortcut sync after mutation failed: %v", logPrefix, err))
	}
}
