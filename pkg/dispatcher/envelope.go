// Package dispatcher routes incoming COMMS messages to registered intent
// handlers and to the bridge's control methods.
package dispatcher

import "encoding/json"

// InvocationRequest is the JSON envelope for inbound intent invocations.
type InvocationRequest struct {
	ID     string             `json:"id"`
	Intent string             `json:"intent"`
	Params map[string]any     `json:"params,omitempty"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// InvocationResponse is the JSON envelope for invocation replies. Result is
// the serialized invocation result map; Code carries the bridge error code
// when the bridge itself produced the failure, so callers can branch without
// parsing the error message. Failures a handler reports through its own
// result pass through with an empty code.
type InvocationResponse struct {
	ID     string         `json:"id"`
	Code   string         `json:"code,omitempty"`
	Result map[string]any `json:"result"`
}

// ControlRequest is the JSON envelope for control-plane requests.
type ControlRequest struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params,omitempty"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// ControlResponse is the JSON envelope for control-plane replies.
type ControlResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result any          `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// InvocationContext holds context from the caller: where the invocation came
// from and how long the caller is willing to wait.
type InvocationContext struct {
	// Locale is the caller's BCP 47 locale tag, e.g. "en-US".
	Locale string `json:"locale,omitempty"`
	// Surface names the host surface that triggered the invocation, e.g.
	// "siri", "shortcuts", "widget", "spotlight".
	Surface    string `json:"surface,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	DeviceID   string `json:"deviceId,omitempty"`
	TimeoutMs  int    `json:"timeoutMs,omitempty"`
	DeadlineMs int64  `json:"deadlineMs,omitempty"`
}
