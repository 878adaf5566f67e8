package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intentwire/intents-bridge/pkg/events"
	"github.com/intentwire/intents-bridge/pkg/intent"
)

const syncLogPrefix = "registry:sync"

// Reasons a registered intent is not discoverable.
const (
	// ReasonNotCompiled marks intents absent from the compiled-intent
	// manifest. They stay invocable; the host just cannot surface them.
	ReasonNotCompiled = "not-compiled"
	// ReasonOSVersion marks intents whose minimumOSVersion the host does not
	// meet.
	ReasonOSVersion = "os-version"
)

// bindingFor reconciles one descriptor against the manifest and the platform
// gate: registered AND compiled AND version-available means discoverable.
func (r *Registry) bindingFor(d intent.Descriptor) events.BindingState {
	state := events.BindingState{
		Identifier:   d.Identifier,
		Title:        d.Title,
		Discoverable: true,
	}
	if r.manifest != nil && !r.manifest.Compiled(d.Identifier) {
		state.Discoverable = false
		state.Reason = ReasonNotCompiled
		return state
	}
	available, err := r.host.Available(d.MinimumOSVersion)
	if err != nil {
		// Unparseable minimums are rejected at registration, so this only
		// fires if an entry predates a grammar change. Treat as gated.
		slog.Warn(fmt.Sprintf("%s - cannot evaluate minimumOSVersion for %s: %v", syncLogPrefix, d.Identifier, err))
		available = false
	}
	if !available {
		state.Discoverable = false
		state.Reason = ReasonOSVersion
	}
	return state
}

// BindingStates returns the discoverability of every registered intent, in
// registration order.
func (r *Registry) BindingStates() []events.BindingState {
	descs := r.List()
	states := make([]events.BindingState, 0, len(descs))
	for _, d := range descs {
		states = append(states, r.bindingFor(d))
	}
	return states
}

// SyncShortcuts publishes the current binding states so hosts can reconcile
// their discoverable shortcuts, and returns the published event.
func (r *Registry) SyncShortcuts(ctx context.Context) (*events.ShortcutsChangedEvent, error) {
	event := &events.ShortcutsChangedEvent{
		Bindings:  r.BindingStates(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.syncer.PublishShortcutsChanged(ctx, event); err != nil {
		return nil, fmt.Errorf("%s - failed to publish shortcut change: %w", syncLogPrefix, err)
	}
	return event, nil
}
