// Package platform provides host OS requirement parsing and availability
// checks for intents that declare a minimum platform release.
package platform

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "platform:parser"

// Requirement is a parsed minimumOSVersion declaration.
//
// Supported formats:
//   - "16.0"                       (bare version, ">= 16.0" implied)
//   - ">= 16.0"                    (bare constraint, applies to any host OS)
//   - "ios >= 16.0"                (constraint scoped to one OS)
//   - "ios >= 16.0, macos >= 13.0" (comma-separated list of scoped constraints)
//
// A scoped list that does not mention the host's OS places no restriction on
// that OS, mirroring how native availability annotations behave.
type Requirement struct {
	anyOS *masterminds.Constraints
	perOS map[string]*masterminds.Constraints
}

// ParseRequirement parses a minimumOSVersion string. An empty string returns
// a nil Requirement, which every host satisfies.
func ParseRequirement(input string) (*Requirement, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, nil
	}

	req := &Requirement{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		osName, constraintStr := splitScope(part)
		if bareVersion(constraintStr) {
			constraintStr = ">= " + constraintStr
		}
		constraint, err := masterminds.NewConstraint(constraintStr)
		if err != nil {
			return nil, fmt.Errorf("%s - invalid version constraint %q: %w", logPrefix, part, err)
		}

		if osName == "" {
			if req.anyOS != nil {
				return nil, fmt.Errorf("%s - multiple unscoped constraints in %q", logPrefix, raw)
			}
			req.anyOS = constraint
			continue
		}
		if req.perOS == nil {
			req.perOS = make(map[string]*masterminds.Constraints)
		}
		if _, dup := req.perOS[osName]; dup {
			return nil, fmt.Errorf("%s - duplicate constraint for %q in %q", logPrefix, osName, raw)
		}
		req.perOS[osName] = constraint
	}

	if req.anyOS == nil && len(req.perOS) == 0 {
		return nil, fmt.Errorf("%s - empty requirement %q", logPrefix, input)
	}
	return req, nil
}

// ValidRequirement reports whether a minimumOSVersion string parses. It is
// the registration-time check; empty strings are valid.
func ValidRequirement(input string) error {
	_, err := ParseRequirement(input)
	return err
}

// NormalizeOS canonicalizes a host OS name.
func NormalizeOS(osName string) string {
	return strings.ToLower(strings.TrimSpace(osName))
}

// ParseVersion parses a host OS version. Partial versions such as "16" or
// "16.0" are accepted.
func ParseVersion(version string) (*masterminds.Version, error) {
	v, err := masterminds.NewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	return v, nil
}

// splitScope splits "ios >= 16.0" into ("ios", ">= 16.0"). A part whose
// first token is not a plain lowercase word is an unscoped constraint.
func splitScope(part string) (osName, constraint string) {
	fields := strings.Fields(part)
	if len(fields) >= 2 && plainWord(fields[0]) {
		return NormalizeOS(fields[0]), strings.TrimSpace(strings.TrimPrefix(part, fields[0]))
	}
	return "", part
}

func plainWord(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}

func bareVersion(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return len(s) > 0
}
