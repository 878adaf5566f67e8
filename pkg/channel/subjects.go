package channel

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectInvoke    = "intents.bridge.invoke.v1"
	SubjectControl   = "intents.bridge.control.v1"
	SubjectDonation  = "intents.donated"
	SubjectShortcuts = "intents.shortcuts.changed"
	SubjectManifest  = "system.intents.manifest"
)

// BuildDonationSubject builds a granular donation subject for one intent so
// suggestion consumers can subscribe per identifier.
func BuildDonationSubject(identifier string) string {
	return fmt.Sprintf("%s.%s", SubjectDonation, SafeToken(identifier))
}

// SafeToken makes an intent identifier usable as a single COMMS subject
// token. Dots would otherwise split the identifier across tokens.
func SafeToken(identifier string) string {
	return strings.ReplaceAll(identifier, ".", "_")
}
