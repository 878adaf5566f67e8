package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/intentwire/intents-bridge/pkg/events"
	"github.com/intentwire/intents-bridge/pkg/intent"
	"github.com/intentwire/intents-bridge/pkg/registry"
	"github.com/intentwire/intents-bridge/pkg/store"
)

// TestControl_UnknownMethod verifies that unknown methods return METHOD_NOT_FOUND.
func TestControl_UnknownMethod(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t)})

	req := &ControlRequest{
		ID:     "test-1",
		Method: "nonexistent",
		Params: json.RawMessage(`{}`),
	}

	resp := disp.Control(context.Background(), req)

	if resp.Ok {
		t.Error("dispatcher:control_test - expected Ok=false for unknown method")
	}
	if resp.ID != "test-1" {
		t.Errorf("dispatcher:control_test - expected ID=test-1, got %s", resp.ID)
	}
	if resp.Error == nil {
		t.Fatal("dispatcher:control_test - expected error, got nil")
	}
	if resp.Error.Code != "METHOD_NOT_FOUND" {
		t.Errorf("dispatcher:control_test - expected METHOD_NOT_FOUND, got %s", resp.Error.Code)
	}
	if resp.Error.Retryable {
		t.Error("dispatcher:control_test - METHOD_NOT_FOUND should not be retryable")
	}
}

func TestControl_UnknownMethodPreservesRequestID(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t)})

	ids := []string{"req-1", "req-2", "unique-abc-123", ""}
	for _, id := range ids {
		resp := disp.Control(context.Background(), &ControlRequest{
			ID:     id,
			Method: "unknown",
			Params: json.RawMessage(`{}`),
		})

		if resp.ID != id {
			t.Errorf("dispatcher:control_test - expected ID=%q, got %q", id, resp.ID)
		}
	}
}

func TestControl_List(t *testing.T) {
	reg := newTestRegistry(t,
		registry.Registration{Descriptor: counterDescriptor(), Handler: incrementHandler},
		registry.Registration{Descriptor: coffeeDescriptor(), Handler: incrementHandler},
	)
	disp := NewDispatcher(NewDispatcherParams{Registry: reg})

	resp := disp.Control(context.Background(), &ControlRequest{ID: "list-1", Method: "list"})

	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected result map, got %T", resp.Result)
	}
	if result["total"] != 2 {
		t.Errorf("dispatcher:control_test - expected total=2, got %v", result["total"])
	}
	intents, ok := result["intents"].([]map[string]any)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected intents list, got %T", result["intents"])
	}
	if intents[0]["identifier"] != "get_counter" {
		t.Errorf("dispatcher:control_test - expected registration order preserved, got %v", intents[0]["identifier"])
	}
	if intents[1]["identifier"] != "order_coffee" {
		t.Errorf("dispatcher:control_test - expected order_coffee second, got %v", intents[1]["identifier"])
	}
}

func TestControl_Describe(t *testing.T) {
	reg := newTestRegistry(t, registry.Registration{Descriptor: coffeeDescriptor(), Handler: incrementHandler})
	disp := NewDispatcher(NewDispatcherParams{Registry: reg})

	resp := disp.Control(context.Background(), &ControlRequest{
		ID:     "desc-1",
		Method: "describe",
		Params: json.RawMessage(`{"identifier": "order_coffee"}`),
	})

	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected result map, got %T", resp.Result)
	}
	descriptor, ok := result["descriptor"].(map[string]any)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected descriptor map, got %T", result["descriptor"])
	}
	if descriptor["identifier"] != "order_coffee" {
		t.Errorf("dispatcher:control_test - expected order_coffee, got %v", descriptor["identifier"])
	}
	if result["discoverable"] != true {
		t.Errorf("dispatcher:control_test - expected discoverable=true, got %v", result["discoverable"])
	}
}

func TestControl_DescribeUnknown(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t)})

	resp := disp.Control(context.Background(), &ControlRequest{
		ID:     "desc-2",
		Method: "describe",
		Params: json.RawMessage(`{"identifier": "ghost"}`),
	})

	if resp.Ok {
		t.Error("dispatcher:control_test - expected Ok=false for unknown intent")
	}
	if resp.Error == nil || resp.Error.Code != intent.CodeUnknownIntent {
		t.Errorf("dispatcher:control_test - expected UNKNOWN_INTENT, got %+v", resp.Error)
	}
	if resp.Error.Retryable {
		t.Error("dispatcher:control_test - UNKNOWN_INTENT should not be retryable")
	}
}

func TestControl_Unregister(t *testing.T) {
	reg := newTestRegistry(t, registry.Registration{Descriptor: counterDescriptor(), Handler: incrementHandler})
	disp := NewDispatcher(NewDispatcherParams{Registry: reg})

	resp := disp.Control(context.Background(), &ControlRequest{
		ID:     "unreg-1",
		Method: "unregister",
		Params: json.RawMessage(`{"identifier": "get_counter"}`),
	})
	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	out, ok := resp.Result.(*UnregisterOutput)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected UnregisterOutput, got %T", resp.Result)
	}
	if !out.Removed {
		t.Error("dispatcher:control_test - expected removed=true")
	}

	// Second removal is idempotent
	resp = disp.Control(context.Background(), &ControlRequest{
		ID:     "unreg-2",
		Method: "unregister",
		Params: json.RawMessage(`{"identifier": "get_counter"}`),
	})
	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	if resp.Result.(*UnregisterOutput).Removed {
		t.Error("dispatcher:control_test - expected removed=false for absent identifier")
	}
}

func TestControl_UnregisterValidation(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t)})

	tests := []struct {
		name   string
		params json.RawMessage
	}{
		{"malformed params", json.RawMessage(`[1, 2]`)},
		{"missing identifier", json.RawMessage(`{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := disp.Control(context.Background(), &ControlRequest{
				ID:     "unreg-bad",
				Method: "unregister",
				Params: tt.params,
			})
			if resp.Ok {
				t.Error("dispatcher:control_test - expected Ok=false")
			}
			if resp.Error == nil || resp.Error.Code != "INVALID_ARGUMENT" {
				t.Errorf("dispatcher:control_test - expected INVALID_ARGUMENT, got %+v", resp.Error)
			}
		})
	}
}

func TestControl_RegisterValidation(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t)})

	tests := []struct {
		name     string
		params   json.RawMessage
		wantCode string
	}{
		{
			name:     "malformed params",
			params:   json.RawMessage(`"nope"`),
			wantCode: "INVALID_ARGUMENT",
		},
		{
			name:     "no descriptors",
			params:   json.RawMessage(`{"descriptors": [], "replySubject": "app.intents"}`),
			wantCode: "INVALID_ARGUMENT",
		},
		{
			name:     "missing reply subject",
			params:   json.RawMessage(`{"descriptors": [{"identifier": "x", "title": "X"}]}`),
			wantCode: "INVALID_ARGUMENT",
		},
		{
			name:     "descriptor without identifier",
			params:   json.RawMessage(`{"descriptors": [{"title": "X"}], "replySubject": "app.intents"}`),
			wantCode: intent.CodeValidationFailed,
		},
		{
			name:     "no channel connection",
			params:   json.RawMessage(`{"descriptors": [{"identifier": "x", "title": "X"}], "replySubject": "app.intents"}`),
			wantCode: intent.CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := disp.Control(context.Background(), &ControlRequest{
				ID:     "reg-bad",
				Method: "register",
				Params: tt.params,
			})
			if resp.Ok {
				t.Fatal("dispatcher:control_test - expected Ok=false")
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("dispatcher:control_test - expected %s, got %+v", tt.wantCode, resp.Error)
			}
		})
	}
}

func TestControl_SuggestionsWithoutJournal(t *testing.T) {
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t)})

	resp := disp.Control(context.Background(), &ControlRequest{ID: "sugg-1", Method: "suggestions"})

	if resp.Ok {
		t.Error("dispatcher:control_test - expected Ok=false without a journal")
	}
	if resp.Error == nil || resp.Error.Code != intent.CodeInternalError {
		t.Errorf("dispatcher:control_test - expected INTERNAL_ERROR, got %+v", resp.Error)
	}
	if resp.Error.Message != "journal not configured" {
		t.Errorf("dispatcher:control_test - unexpected message %q", resp.Error.Message)
	}
}

func TestControl_Suggestions(t *testing.T) {
	journal := &fakeJournal{suggestions: []store.Suggestion{
		{Intent: "increment_counter", Count: 12, LastDonatedAt: time.Now().UTC()},
		{Intent: "order_coffee", Count: 4, LastDonatedAt: time.Now().UTC().Add(-time.Hour)},
	}}
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t), Journal: journal})

	resp := disp.Control(context.Background(), &ControlRequest{
		ID:     "sugg-2",
		Method: "suggestions",
		Params: json.RawMessage(`{"limit": 10}`),
	})

	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected result map, got %T", resp.Result)
	}
	suggestions, ok := result["suggestions"].([]store.Suggestion)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected suggestions, got %T", result["suggestions"])
	}
	if len(suggestions) != 2 {
		t.Errorf("dispatcher:control_test - expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Intent != "increment_counter" {
		t.Errorf("dispatcher:control_test - expected increment_counter first, got %s", suggestions[0].Intent)
	}
	if result["limit"] != 10 {
		t.Errorf("dispatcher:control_test - expected limit=10, got %v", result["limit"])
	}
}

func TestControl_SuggestionsClampsLimit(t *testing.T) {
	journal := &fakeJournal{}
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t), Journal: journal})

	resp := disp.Control(context.Background(), &ControlRequest{
		ID:     "sugg-3",
		Method: "suggestions",
		Params: json.RawMessage(`{"limit": 5000}`),
	})

	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	if result["limit"] != maxSuggestionLimit {
		t.Errorf("dispatcher:control_test - expected limit clamped to %d, got %v", maxSuggestionLimit, result["limit"])
	}
}

func TestControl_SuggestionsJournalError(t *testing.T) {
	journal := &fakeJournal{topErr: errors.New("connection refused")}
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t), Journal: journal})

	resp := disp.Control(context.Background(), &ControlRequest{ID: "sugg-4", Method: "suggestions"})

	if resp.Ok {
		t.Error("dispatcher:control_test - expected Ok=false on journal error")
	}
	if resp.Error == nil || !resp.Error.Retryable {
		t.Errorf("dispatcher:control_test - expected a retryable error, got %+v", resp.Error)
	}
}

func TestControl_SyncShortcuts(t *testing.T) {
	synced := make(chan *events.ShortcutsChangedEvent, 4)
	syncer := events.NewCallbackSyncer(func(_ context.Context, event *events.ShortcutsChangedEvent) error {
		synced <- event
		return nil
	})
	reg := registry.NewRegistry(registry.NewRegistryParams{Syncer: syncer})
	if err := reg.Register(context.Background(), registry.Registration{Descriptor: counterDescriptor(), Handler: incrementHandler}); err != nil {
		t.Fatalf("dispatcher:control_test - failed to register: %v", err)
	}
	disp := NewDispatcher(NewDispatcherParams{Registry: reg})

	resp := disp.Control(context.Background(), &ControlRequest{ID: "sync-1", Method: "syncShortcuts"})

	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	out, ok := resp.Result.(*registry.SyncOutput)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected SyncOutput, got %T", resp.Result)
	}
	if len(out.Bindings) != 1 {
		t.Fatalf("dispatcher:control_test - expected 1 binding, got %d", len(out.Bindings))
	}
	if out.Bindings[0].Identifier != "get_counter" {
		t.Errorf("dispatcher:control_test - expected get_counter, got %s", out.Bindings[0].Identifier)
	}
	if len(synced) == 0 {
		t.Error("dispatcher:control_test - expected the sync to publish an event")
	}
}

func TestControl_Health(t *testing.T) {
	reg := newTestRegistry(t, registry.Registration{Descriptor: counterDescriptor(), Handler: incrementHandler})
	journal := &fakeJournal{}
	disp := NewDispatcher(NewDispatcherParams{Registry: reg, Journal: journal})

	resp := disp.Control(context.Background(), &ControlRequest{ID: "health-1", Method: "health"})

	if !resp.Ok {
		t.Fatalf("dispatcher:control_test - expected Ok=true, got error %+v", resp.Error)
	}
	out, ok := resp.Result.(*HealthOutput)
	if !ok {
		t.Fatalf("dispatcher:control_test - expected HealthOutput, got %T", resp.Result)
	}
	// No channel connection in unit tests, so the bridge reports unhealthy.
	if out.Status != "unhealthy" {
		t.Errorf("dispatcher:control_test - expected unhealthy without a connection, got %s", out.Status)
	}
	if out.Checks.Channel {
		t.Error("dispatcher:control_test - expected channel check false")
	}
	if !out.Checks.Journal {
		t.Error("dispatcher:control_test - expected journal check true")
	}
	if out.RegisteredIntents != 1 {
		t.Errorf("dispatcher:control_test - expected 1 registered intent, got %d", out.RegisteredIntents)
	}
	if out.Timestamp == "" {
		t.Error("dispatcher:control_test - expected a timestamp")
	}
}

func TestControl_HealthJournalDown(t *testing.T) {
	journal := &fakeJournal{pingErr: errors.New("connection refused")}
	disp := NewDispatcher(NewDispatcherParams{Registry: newTestRegistry(t), Journal: journal})

	out := disp.Health(context.Background())

	if out.Checks.Journal {
		t.Error("dispatcher:control_test - expected journal check false when ping fails")
	}
	if out.Status != "unhealthy" {
		t.Errorf("dispatcher:control_test - expected unhealthy, got %s", out.Status)
	}
}
