package store

import "time"

// Donation represents a row in the donations table.
type Donation struct {
	ID        string         `json:"id"`
	Intent    string         `json:"intent"`
	Params    map[string]any `json:"params"`
	Source    string         `json:"source,omitempty"`
	DonatedAt time.Time      `json:"donatedAt"`
}

// IntentBinding represents a row in the intent_bindings table: a snapshot of
// one registered intent's descriptor and discoverability at the last sync.
type IntentBinding struct {
	Identifier   string         `json:"identifier"`
	Title        string         `json:"title,omitempty"`
	Descriptor   map[string]any `json:"descriptor"`
	Discoverable bool           `json:"discoverable"`
	Reason       string         `json:"reason,omitempty"`
	Position     int            `json:"position"`
	Created      time.Time      `json:"created"`
	Modified     time.Time      `json:"modified"`
}

// Suggestion is one ranked entry from the donation journal: how often an
// intent was donated inside the ranking window and when it was last seen.
type Suggestion struct {
	Intent        string    `json:"intent"`
	Count         int64     `json:"count"`
	LastDonatedAt time.Time `json:"lastDonatedAt"`
}
