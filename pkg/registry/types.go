package registry

import (
	"github.com/intentwire/intents-bridge/pkg/events"
	"github.com/intentwire/intents-bridge/pkg/intent"
)

// DescribeOutput holds the result of the describe method.
type DescribeOutput struct {
	Descriptor   intent.Descriptor `json:"descriptor"`
	Compiled     bool              `json:"compiled"`
	Discoverable bool              `json:"discoverable"`
	Reason       string            `json:"reason,omitempty"`
}

// ListOutput holds the result of the list method.
type ListOutput struct {
	Intents []intent.Descriptor `json:"intents"`
	Total   int                 `json:"total"`
}

// SyncOutput holds the result of the syncShortcuts method.
type SyncOutput struct {
	Bindings  []events.BindingState `json:"bindings"`
	Timestamp string                `json:"timestamp"`
}
