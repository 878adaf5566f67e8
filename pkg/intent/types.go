// Package intent defines the descriptor model shared by the registry and the
// dispatcher: what an invocable intent looks like, what its parameters
// accept, and the structured result a handler produces.
package intent

import (
	"context"
	"regexp"
)

// ParameterType enumerates the value types an intent parameter can declare.
type ParameterType string

// Supported parameter types. These serialize by name on the wire.
const (
	TypeString  ParameterType = "string"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeDouble  ParameterType = "double"
	TypeDate    ParameterType = "date"
	TypeURL     ParameterType = "url"
	TypeFile    ParameterType = "file"
	TypeEntity  ParameterType = "entity"
)

// Valid reports whether t is one of the supported parameter types.
func (t ParameterType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean, TypeDouble, TypeDate, TypeURL, TypeFile, TypeEntity:
		return true
	}
	return false
}

// AuthPolicy describes the authentication the host must establish before an
// intent may run. The bridge records and forwards the policy; enforcement is
// the host's responsibility.
type AuthPolicy string

// Supported authentication policies. These serialize by name on the wire.
const (
	AuthNone           AuthPolicy = "none"
	AuthRequired       AuthPolicy = "requiresAuthentication"
	AuthUnlockedDevice AuthPolicy = "requiresUnlockedDevice"
)

// Valid reports whether p is a known authentication policy.
func (p AuthPolicy) Valid() bool {
	switch p {
	case AuthNone, AuthRequired, AuthUnlockedDevice:
		return true
	}
	return false
}

// Parameter declares a single named input of an intent.
type Parameter struct {
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	Type        ParameterType `json:"type"`
	Description string        `json:"description,omitempty"`
	IsOptional  bool          `json:"isOptional,omitempty"`
	// DefaultValue is substituted when an optional parameter is absent at
	// invocation. Canonical in-memory forms per type: string for string, url
	// and file; int64 for integer; bool for boolean; float64 for double;
	// time.Time (UTC) for date; *EntityRef for entity. A default on a
	// non-optional parameter is ignored.
	DefaultValue any `json:"defaultValue,omitempty"`
}

// Descriptor is the declarative metadata for one invocable intent.
type Descriptor struct {
	// Identifier is the globally unique key for the intent. It is stable
	// across app versions: the host stores it in shortcut bindings.
	Identifier              string      `json:"identifier"`
	Title                   string      `json:"title,omitempty"`
	Description             string      `json:"description,omitempty"`
	Parameters              []Parameter `json:"parameters,omitempty"`
	IsEligibleForSearch     bool        `json:"isEligibleForSearch,omitempty"`
	IsEligibleForPrediction bool        `json:"isEligibleForPrediction,omitempty"`
	AuthenticationPolicy    AuthPolicy  `json:"authenticationPolicy,omitempty"`
	// MinimumOSVersion is an optional SemVer constraint naming the lowest
	// host platform release the intent is available on (e.g. ">= 16.0").
	// It affects discoverability reconciliation only, never dispatch.
	MinimumOSVersion string `json:"minimumOSVersion,omitempty"`
}

// Parameter returns the named parameter declaration, or nil.
func (d *Descriptor) Parameter(name string) *Parameter {
	for i := range d.Parameters {
		if d.Parameters[i].Name == name {
			return &d.Parameters[i]
		}
	}
	return nil
}

// Handler is the asynchronous implementation of an intent. It receives the
// normalized parameter bag and returns a structured result. A non-nil error
// (or a panic) is converted by the dispatcher into a failed result; it never
// crosses the channel boundary as a fault. Cancellation via ctx is advisory:
// a handler may run to completion after the caller has stopped waiting, in
// which case its result is discarded.
type Handler func(ctx context.Context, params Params) (*Result, error)

// Result is the terminal outcome of one intent invocation.
//
// A well-formed result populates value only when success is true and error
// exactly when success is false; never both.
type Result struct {
	Success bool `json:"success"`
	// Value is the optional success payload, conventionally the user-facing
	// outcome text the host speaks or displays.
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
	// NeedsToContinueInApp asks the host to foreground the app to finish the
	// flow.
	NeedsToContinueInApp bool `json:"needsToContinueInApp,omitempty"`
	// OpensIntent optionally names a follow-up intent the host should route
	// to after this one.
	OpensIntent string `json:"opensIntent,omitempty"`
}

// Successful builds a success result. A nil value is a success with no
// payload.
func Successful(value any) *Result {
	return &Result{Success: true, Value: value}
}

// Failure builds a failed result with the given message.
func Failure(message string) *Result {
	return &Result{Success: false, Error: message}
}

// Validate reports the first well-formedness violation, or nil.
func (r *Result) Validate() error {
	if r.Success && r.Error != "" {
		return &Error{Code: CodeValidationFailed, Message: "success result must not carry an error message"}
	}
	if !r.Success && r.Error == "" {
		return &Error{Code: CodeValidationFailed, Message: "failure result must carry an error message"}
	}
	if !r.Success && r.Value != nil {
		return &Error{Code: CodeValidationFailed, Message: "failure result must not carry a value"}
	}
	return nil
}

var (
	identifierRegex    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)
	parameterNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
)

// ValidIdentifier reports whether s is a well-formed intent identifier
// (letter first; letters, digits, dots, hyphens, underscores).
func ValidIdentifier(s string) bool {
	return identifierRegex.MatchString(s)
}

// ValidParameterName reports whether s is a well-formed parameter name
// (letter first; letters, digits, underscores).
func ValidParameterName(s string) bool {
	return parameterNameRegex.MatchString(s)
}
