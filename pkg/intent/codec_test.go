package intent

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestDescriptorMapRoundTrip(t *testing.T) {
	desc := Descriptor{
		Identifier:  "com.example.order_coffee",
		Title:       "Order Coffee",
		Description: "Orders a drink from the default cafe",
		Parameters: []Parameter{
			{Name: "drink", Title: "Drink", Type: TypeString, Description: "What to order"},
			{Name: "amount", Type: TypeInteger, IsOptional: true, DefaultValue: int64(1)},
			{Name: "decaf", Type: TypeBoolean, IsOptional: true, DefaultValue: false},
			{Name: "tip", Type: TypeDouble, IsOptional: true, DefaultValue: 0.5},
			{Name: "menu", Type: TypeURL, IsOptional: true},
			{Name: "receipt", Type: TypeFile, IsOptional: true},
			{Name: "cafe", Type: TypeEntity, IsOptional: true, DefaultValue: &EntityRef{ID: "cafe-1", Title: "Corner Cafe"}},
		},
		IsEligibleForSearch:     true,
		IsEligibleForPrediction: true,
		AuthenticationPolicy:    AuthRequired,
		MinimumOSVersion:        ">= 16.0",
	}
	normalized, nerr := desc.Normalized()
	if nerr != nil {
		t.Fatalf("Normalized: %v", nerr)
	}

	got, err := DescriptorFromMap(normalized.ToMap())
	if err != nil {
		t.Fatalf("DescriptorFromMap: %v", err)
	}
	if !reflect.DeepEqual(got, normalized) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, normalized)
	}
}

func TestDescriptorMapRoundTripThroughJSON(t *testing.T) {
	desc, nerr := orderCoffeeDescriptor().Normalized()
	if nerr != nil {
		t.Fatalf("Normalized: %v", nerr)
	}

	// A map codec is only useful if its output survives JSON transport.
	data, err := json.Marshal(desc.ToMap())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	got, err := DescriptorFromMap(m)
	if err != nil {
		t.Fatalf("DescriptorFromMap: %v", err)
	}
	if !reflect.DeepEqual(got, desc) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, desc)
	}
}

func TestDescriptorDateDefaultRoundTrip(t *testing.T) {
	when := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	desc, nerr := Descriptor{
		Identifier: "schedule_brew",
		Parameters: []Parameter{
			{Name: "at", Type: TypeDate, IsOptional: true, DefaultValue: when},
		},
	}.Normalized()
	if nerr != nil {
		t.Fatalf("Normalized: %v", nerr)
	}

	got, err := DescriptorFromMap(desc.ToMap())
	if err != nil {
		t.Fatalf("DescriptorFromMap: %v", err)
	}
	gotDefault, ok := got.Parameters[0].DefaultValue.(time.Time)
	if !ok {
		t.Fatalf("default = %T, want time.Time", got.Parameters[0].DefaultValue)
	}
	if !gotDefault.Equal(when) {
		t.Errorf("default = %v, want %v", gotDefault, when)
	}
}

func TestDescriptorMapOmitsDefaults(t *testing.T) {
	m := Descriptor{Identifier: "get_counter"}.ToMap()
	if len(m) != 1 {
		t.Fatalf("map for minimal descriptor = %v, want only identifier", m)
	}
	if m["identifier"] != "get_counter" {
		t.Errorf("identifier = %v", m["identifier"])
	}
}

func TestDescriptorFromMapErrors(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
	}{
		{"missing identifier", map[string]any{"title": "x"}},
		{"parameters not a list", map[string]any{"identifier": "x", "parameters": "nope"}},
		{"parameter not a map", map[string]any{"identifier": "x", "parameters": []any{"nope"}}},
		{"parameter missing name", map[string]any{"identifier": "x", "parameters": []any{map[string]any{"type": "string"}}}},
		{"parameter bad type", map[string]any{"identifier": "x", "parameters": []any{map[string]any{"name": "p", "type": "blob"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DescriptorFromMap(tt.m); err == nil {
				t.Fatalf("expected error but got nil")
			}
		})
	}
}

func TestResultMapRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		result Result
	}{
		{"success with value", Result{Success: true, Value: "Counter is now 2"}},
		{"success bare", Result{Success: true}},
		{"failure", Result{Success: false, Error: "HANDLER_FAILURE: out of beans"}},
		{"continue in app", Result{Success: true, Value: "opening", NeedsToContinueInApp: true}},
		{"opens intent", Result{Success: true, OpensIntent: "show_order"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResultFromMap(tt.result.ToMap())
			if err != nil {
				t.Fatalf("ResultFromMap: %v", err)
			}
			if !reflect.DeepEqual(got, tt.result) {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tt.result)
			}
		})
	}
}

func TestResultMapLowersTypedValues(t *testing.T) {
	when := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	r := Result{Success: true, Value: when}

	m := r.ToMap()
	if m["value"] != "2024-03-01T10:30:00Z" {
		t.Errorf("value = %v, want RFC 3339 string", m["value"])
	}

	r = Result{Success: true, Value: map[string]any{"at": when, "ref": EntityRef{ID: "e-1"}}}
	inner, ok := r.ToMap()["value"].(map[string]any)
	if !ok {
		t.Fatalf("value = %T, want map", r.ToMap()["value"])
	}
	if inner["at"] != "2024-03-01T10:30:00Z" {
		t.Errorf("nested time = %v", inner["at"])
	}
	ref, ok := inner["ref"].(map[string]any)
	if !ok || ref["id"] != "e-1" {
		t.Errorf("nested entity = %v", inner["ref"])
	}
}

func TestParameterMapRoundTrip(t *testing.T) {
	p := Parameter{
		Name:         "contactName",
		Title:        "Contact",
		Type:         TypeString,
		Description:  "Who to message",
		IsOptional:   false,
	}

	got, err := ParameterFromMap(p.ToMap())
	if err != nil {
		t.Fatalf("ParameterFromMap: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, p)
	}
}
