package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/intentwire/intents-bridge/pkg/channel"
	"github.com/intentwire/intents-bridge/pkg/intent"
	"github.com/intentwire/intents-bridge/pkg/registry"
)

const controlLogPrefix = "dispatcher:control"

// Control routes a control-plane request to the appropriate bridge method
// and returns a response.
func (d *Dispatcher) Control(ctx context.Context, req *ControlRequest) *ControlResponse {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", controlLogPrefix, req.Method, req.ID))

	switch req.Method {
	case "register":
		return d.handleRegister(ctx, req)
	case "unregister":
		return d.handleUnregister(ctx, req)
	case "list":
		return d.handleList(ctx, req)
	case "describe":
		return d.handleDescribe(ctx, req)
	case "suggestions":
		return d.handleSuggestions(ctx, req)
	case "syncShortcuts":
		return d.handleSyncShortcuts(ctx, req)
	case "health":
		return d.handleHealth(ctx, req)
	default:
		return &ControlResponse{
			ID: req.ID,
			Ok: false,
			Error: &ErrorDetail{
				Code:      "METHOD_NOT_FOUND",
				Message:   fmt.Sprintf("Unknown method: %s", req.Method),
				Retryable: false,
			},
		}
	}
}

// RegisterInput is the params shape of the register control method. Apps
// registering over the wire cannot attach an in-process handler, so the
// bridge installs forwarding handlers that request/reply the app over
// ReplySubject.
type RegisterInput struct {
	Descriptors  []map[string]any `json:"descriptors"`
	ReplySubject string           `json:"replySubject"`
	// TimeoutMs overrides the bridge's per-invocation reply deadline for
	// these handlers.
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

// RegisterOutput reports a successful wire registration.
type RegisterOutput struct {
	Registered int      `json:"registered"`
	Intents    []string `json:"intents"`
}

func (d *Dispatcher) handleRegister(ctx context.Context, req *ControlRequest) *ControlResponse {
	var input RegisterInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse register params", false)
	}
	if len(input.Descriptors) == 0 {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "register requires at least one descriptor", false)
	}
	if input.ReplySubject == "" {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "register requires a replySubject", false)
	}

	descs := make([]intent.Descriptor, 0, len(input.Descriptors))
	for _, m := range input.Descriptors {
		desc, err := intent.DescriptorFromMap(m)
		if err != nil {
			return errorResponse(req.ID, intent.CodeValidationFailed, err.Error(), false)
		}
		descs = append(descs, desc)
	}

	if d.conn == nil {
		return errorResponse(req.ID, intent.CodeInternalError, "wire registration requires an active channel connection", false)
	}

	timeout := d.forwardTimeout
	if input.TimeoutMs > 0 {
		timeout = time.Duration(input.TimeoutMs) * time.Millisecond
	}

	regs := make([]registry.Registration, 0, len(descs))
	identifiers := make([]string, 0, len(descs))
	for _, desc := range descs {
		regs = append(regs, registry.Registration{
			Descriptor: desc,
			Handler:    channel.NewForwardingHandler(d.conn, input.ReplySubject, desc.Identifier, timeout),
		})
		identifiers = append(identifiers, desc.Identifier)
	}

	if err := d.registry.Register(ctx, regs...); err != nil {
		return intentErrorToResponse(req.ID, err)
	}
	return &ControlResponse{ID: req.ID, Ok: true, Result: &RegisterOutput{
		Registered: len(regs),
		Intents:    identifiers,
	}}
}

// UnregisterInput is the params shape of the unregister control method.
type UnregisterInput struct {
	Identifier string `json:"identifier"`
}

// UnregisterOutput reports whether the identifier was present.
type UnregisterOutput struct {
	Removed bool `json:"removed"`
}

func (d *Dispatcher) handleUnregister(ctx context.Context, req *ControlRequest) *ControlResponse {
	var input UnregisterInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse unregister params", false)
	}
	if input.Identifier == "" {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "unregister requires an identifier", false)
	}

	removed := d.registry.Unregister(ctx, input.Identifier)
	return &ControlResponse{ID: req.ID, Ok: true, Result: &UnregisterOutput{Removed: removed}}
}

func (d *Dispatcher) handleList(_ context.Context, req *ControlRequest) *ControlResponse {
	intents := d.registry.List()
	serialized := make([]map[string]any, 0, len(intents))
	for _, desc := range intents {
		serialized = append(serialized, desc.ToMap())
	}
	return &ControlResponse{ID: req.ID, Ok: true, Result: map[string]any{
		"intents": serialized,
		"total":   len(intents),
	}}
}

// DescribeInput is the params shape of the describe control method.
type DescribeInput struct {
	Identifier string `json:"identifier"`
}

func (d *Dispatcher) handleDescribe(_ context.Context, req *ControlRequest) *ControlResponse {
	var input DescribeInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse describe params", false)
	}

	out, derr := d.registry.Describe(input.Identifier)
	if derr != nil {
		return intentErrorToResponse(req.ID, derr)
	}
	return &ControlResponse{ID: req.ID, Ok: true, Result: map[string]any{
		"descriptor":   out.Descriptor.ToMap(),
		"compiled":     out.Compiled,
		"discoverable": out.Discoverable,
		"reason":       out.Reason,
	}}
}

// SuggestionsInput is the params shape of the suggestions control method.
type SuggestionsInput struct {
	Limit int `json:"limit,omitempty"`
	// WindowHours bounds how far back the ranking looks. Defaults to 30
	// days.
	WindowHours int `json:"windowHours,omitempty"`
}

const (
	defaultSuggestionLimit  = 5
	maxSuggestionLimit      = 50
	defaultSuggestionWindow = 30 * 24 * time.Hour
)

func (d *Dispatcher) handleSuggestions(ctx context.Context, req *ControlRequest) *ControlResponse {
	var input SuggestionsInput
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &input); err != nil {
			return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse suggestions params", false)
		}
	}
	if d.journal == nil {
		return errorResponse(req.ID, intent.CodeInternalError, "journal not configured", false)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}
	window := defaultSuggestionWindow
	if input.WindowHours > 0 {
		window = time.Duration(input.WindowHours) * time.Hour
	}

	suggestions, err := d.journal.TopDonatedIntents(ctx, time.Now().UTC().Add(-window), limit)
	if err != nil {
		return errorResponse(req.ID, intent.CodeInternalError, err.Error(), true)
	}
	return &ControlResponse{ID: req.ID, Ok: true, Result: map[string]any{
		"suggestions": suggestions,
		"limit":       limit,
		"windowHours": int(window / time.Hour),
	}}
}

func (d *Dispatcher) handleSyncShortcuts(ctx context.Context, req *ControlRequest) *ControlResponse {
	event, err := d.registry.SyncShortcuts(ctx)
	if err != nil {
		return errorResponse(req.ID, intent.CodeInternalError, err.Error(), true)
	}
	return &ControlResponse{ID: req.ID, Ok: true, Result: &registry.SyncOutput{
		Bindings:  event.Bindings,
		Timestamp: event.Timestamp,
	}}
}

// HealthOutput reports bridge liveness and the state of its configured
// dependencies.
type HealthOutput struct {
	Status            string       `json:"status"`
	Checks            HealthChecks `json:"checks"`
	RegisteredIntents int          `json:"registeredIntents"`
	Timestamp         string       `json:"timestamp"`
}

// HealthChecks holds individual dependency check results.
type HealthChecks struct {
	Channel bool `json:"channel"`
	Journal bool `json:"journal"`
}

// Health checks the bridge's dependencies. A missing journal is a supported
// mode and does not degrade the status; a configured journal that fails its
// ping does.
func (d *Dispatcher) Health(ctx context.Context) *HealthOutput {
	channelOk := d.conn != nil && d.conn.IsConnected()

	journalOk := false
	journalHealthy := true
	if d.journal != nil {
		journalOk = d.journal.Ping(ctx) == nil
		journalHealthy = journalOk
	}

	status := "healthy"
	if !channelOk || !journalHealthy {
		status = "unhealthy"
	}

	return &HealthOutput{
		Status: status,
		Checks: HealthChecks{
			Channel: channelOk,
			Journal: journalOk,
		},
		RegisteredIntents: d.registry.Count(),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}
}

func (d *Dispatcher) handleHealth(ctx context.Context, req *ControlRequest) *ControlResponse {
	return &ControlResponse{ID: req.ID, Ok: true, Result: d.Health(ctx)}
}

// --- helpers ---

func errorResponse(id, code, message string, retryable bool) *ControlResponse {
	return &ControlResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func intentErrorToResponse(id string, err error) *ControlResponse {
	if be, ok := err.(*intent.Error); ok {
		var details any
		if be.Intent != "" || be.Parameter != "" {
			m := map[string]any{}
			if be.Intent != "" {
				m["intent"] = be.Intent
			}
			if be.Parameter != "" {
				m["parameter"] = be.Parameter
			}
			details = m
		}
		return &ControlResponse{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      be.Code,
				Message:   be.Message,
				Details:   details,
				Retryable: be.Code == intent.CodeInternalError,
			},
		}
	}
	return errorResponse(id, intent.CodeInternalError, err.Error(), true)
}
