package platform

import (
	"fmt"

	masterminds "github.com/Masterminds/semver/v3"

	"github.com/intentwire/intents-bridge/pkg/intent"
)

const gateLogPrefix = "platform:gate"

// supportedMatrix is the lowest host release the bridge itself runs on.
var supportedMatrix = map[string]string{
	"ios":   ">= 16.0",
	"macos": ">= 13.0",
}

// Host identifies the platform the bridge serves. A nil Host disables all
// platform gating, which is the mode unit tests and headless deployments run
// in.
type Host struct {
	OS      string
	Version *masterminds.Version
}

// NewHost parses a host OS name and version from configuration. Both empty
// returns a nil Host.
func NewHost(osName, version string) (*Host, error) {
	osName = NormalizeOS(osName)
	if osName == "" && version == "" {
		return nil, nil
	}
	if osName == "" || version == "" {
		return nil, fmt.Errorf("%s - host os and version must be set together", gateLogPrefix)
	}
	v, err := ParseVersion(version)
	if err != nil {
		return nil, err
	}
	return &Host{OS: osName, Version: v}, nil
}

// Validate checks the host against the bridge's supported matrix. It runs
// once at server setup; an unsupported host aborts startup.
func (h *Host) Validate() error {
	if h == nil {
		return nil
	}
	rangeStr, ok := supportedMatrix[h.OS]
	if !ok {
		return &intent.Error{
			Code:    intent.CodePlatformUnsupported,
			Message: fmt.Sprintf("unsupported host os %q", h.OS),
		}
	}
	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return fmt.Errorf("%s - bad matrix entry for %s: %w", gateLogPrefix, h.OS, err)
	}
	if !constraint.Check(h.Version) {
		return &intent.Error{
			Code:    intent.CodePlatformUnsupported,
			Message: fmt.Sprintf("host %s %s is below the supported minimum %s", h.OS, h.Version, rangeStr),
		}
	}
	return nil
}

// Available reports whether an intent with the given minimumOSVersion is
// available on this host. A nil host and an empty requirement are both
// unconditionally available.
func (h *Host) Available(minimumOSVersion string) (bool, error) {
	if h == nil {
		return true, nil
	}
	req, err := ParseRequirement(minimumOSVersion)
	if err != nil {
		return false, err
	}
	return req.SatisfiedBy(h), nil
}

// SatisfiedBy reports whether the host meets the requirement. A nil
// requirement is always satisfied.
func (r *Requirement) SatisfiedBy(h *Host) bool {
	if r == nil || h == nil {
		return true
	}
	if r.anyOS != nil && !r.anyOS.Check(h.Version) {
		return false
	}
	if constraint, ok := r.perOS[h.OS]; ok && !constraint.Check(h.Version) {
		return false
	}
	return true
}
