// Package manifest provides compiled-intent manifest loading for the bridge.
//
// Native discovery is fixed at build time: a host can only surface intents
// that were statically compiled into it. The manifest records that compiled
// set so shortcut reconciliation can tell which registered intents are
// discoverable.
package manifest

// CompiledIntent is one statically compiled intent entry in the manifest.
type CompiledIntent struct {
	Title            string   `json:"title,omitempty"`
	Phrases          []string `json:"phrases,omitempty"`
	MinimumOSVersion string   `json:"minimumOSVersion,omitempty"`
	IsSystem         bool     `json:"isSystem,omitempty"`
}

// ManifestConfig is the root manifest configuration.
type ManifestConfig struct {
	Name        string                    `json:"name"`
	Version     string                    `json:"version"`
	Description string                    `json:"description,omitempty"`
	Intents     map[string]CompiledIntent `json:"intents"`
	Aliases     map[string]string         `json:"aliases,omitempty"`
	Events      EventSubjects             `json:"eventSubjects"`
}

// EventSubjects defines event subject patterns.
type EventSubjects struct {
	Donation  string `json:"donation"`
	Shortcuts string `json:"shortcuts"`
	Pattern   string `json:"pattern"`
}

// Resolved provides fast lookup of manifest entries.
type Resolved struct {
	name    string
	version string
	intents map[string]*CompiledIntent
	aliases map[string]string
	events  EventSubjects
}

// Get returns a compiled intent by identifier, resolving aliases.
func (r *Resolved) Get(identifier string) *CompiledIntent {
	if ci, ok := r.intents[identifier]; ok {
		return ci
	}
	if resolved, ok := r.aliases[identifier]; ok {
		if ci, ok := r.intents[resolved]; ok {
			return ci
		}
	}
	return nil
}

// Compiled reports whether an identifier (or one of its aliases) is in the
// compiled set.
func (r *Resolved) Compiled(identifier string) bool {
	return r.Get(identifier) != nil
}

// IsSystem checks if an identifier names a system intent.
func (r *Resolved) IsSystem(identifier string) bool {
	ci := r.Get(identifier)
	return ci != nil && ci.IsSystem
}

// List returns all compiled intents.
func (r *Resolved) List() map[string]*CompiledIntent {
	return r.intents
}

// ResolveAlias resolves an alias to the full intent identifier.
func (r *Resolved) ResolveAlias(alias string) string {
	if resolved, ok := r.aliases[alias]; ok {
		return resolved
	}
	return alias
}

// DonationSubject returns the donation event subject.
func (r *Resolved) DonationSubject() string {
	return r.events.Donation
}

// ShortcutsSubject returns the shortcut change event subject.
func (r *Resolved) ShortcutsSubject() string {
	return r.events.Shortcuts
}

// Name returns the manifest name (for versioning/cache invalidation).
func (r *Resolved) Name() string {
	return r.name
}

// Version returns the manifest version.
func (r *Resolved) Version() string {
	return r.version
}
