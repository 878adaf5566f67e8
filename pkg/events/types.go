// Package events defines event types and publisher interfaces for intent
// donations and shortcut change notifications.
package events

// DonationEvent is emitted after a successful invocation of a
// prediction-eligible intent. Donations feed the suggestion journal; they
// carry no reply and delivery is best effort.
type DonationEvent struct {
	ID        string         `json:"id"`
	Intent    string         `json:"intent"`
	Params    map[string]any `json:"params"`
	Timestamp string         `json:"timestamp"`
	// Source names the surface the invocation came from (e.g. "siri",
	// "widget"), when the caller provided one.
	Source string `json:"source,omitempty"`
}

// ShortcutsChangedEvent is emitted when the set of discoverable intents
// changes, so hosts can refresh their shortcut bindings.
type ShortcutsChangedEvent struct {
	Bindings  []BindingState `json:"bindings"`
	Timestamp string         `json:"timestamp"`
}

// BindingState describes the discoverability of one registered intent.
type BindingState struct {
	Identifier   string `json:"identifier"`
	Title        string `json:"title,omitempty"`
	Discoverable bool   `json:"discoverable"`
	// Reason explains why a binding is not discoverable ("not-compiled",
	// "os-version"). Empty for discoverable bindings.
	Reason string `json:"reason,omitempty"`
}
