package intent

// Error codes surfaced by the bridge. Registration-time failures are
// synchronous; invocation-time failures are always delivered as failed
// results, never as faults across the channel.
const (
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeUnknownIntent            = "UNKNOWN_INTENT"
	CodeMissingRequiredParameter = "MISSING_REQUIRED_PARAMETER"
	CodeParameterTypeMismatch    = "PARAMETER_TYPE_MISMATCH"
	CodeHandlerFailure           = "HANDLER_FAILURE"
	CodePlatformUnsupported      = "PLATFORM_UNSUPPORTED"
	CodeInvocationCanceled       = "INVOCATION_CANCELED"
	CodeInternalError            = "INTERNAL_ERROR"
)

// Error is a structured bridge error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Intent names the offending descriptor when known.
	Intent string `json:"intent,omitempty"`
	// Parameter names the offending parameter when known.
	Parameter string `json:"parameter,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError returns err as an *Error, wrapping foreign errors as INTERNAL_ERROR.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		return be
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}
