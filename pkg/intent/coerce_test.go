package intent

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCoerce(t *testing.T) {
	aDate := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		typ     ParameterType
		raw     any
		want    Value
		wantErr bool
	}{
		{"string", TypeString, "espresso", StringValue("espresso"), false},
		{"string from number", TypeString, 3.0, Value{}, true},
		{"integer from float64", TypeInteger, 3.0, IntegerValue(3), false},
		{"integer from int", TypeInteger, 7, IntegerValue(7), false},
		{"integer from json.Number", TypeInteger, json.Number("42"), IntegerValue(42), false},
		{"integer rejects fraction", TypeInteger, 3.5, Value{}, true},
		{"integer rejects string", TypeInteger, "3", Value{}, true},
		{"boolean", TypeBoolean, true, BooleanValue(true), false},
		{"boolean rejects string", TypeBoolean, "true", Value{}, true},
		{"double from float64", TypeDouble, 2.75, DoubleValue(2.75), false},
		{"double from int", TypeDouble, 2, DoubleValue(2), false},
		{"date from rfc3339", TypeDate, "2024-03-01T10:30:00Z", DateValue(aDate), false},
		{"date from offset rfc3339", TypeDate, "2024-03-01T12:30:00+02:00", DateValue(aDate), false},
		{"date from epoch millis", TypeDate, float64(aDate.UnixMilli()), DateValue(aDate), false},
		{"date rejects garbage", TypeDate, "yesterday", Value{}, true},
		{"url", TypeURL, "https://example.com/menu", URLValue("https://example.com/menu"), false},
		{"url requires scheme", TypeURL, "example.com/menu", Value{}, true},
		{"file", TypeFile, "/tmp/report.pdf", FileValue("/tmp/report.pdf"), false},
		{"file rejects empty", TypeFile, "", Value{}, true},
		{"entity from map", TypeEntity, map[string]any{"id": "c-1", "title": "Work"}, EntityValue(EntityRef{ID: "c-1", Title: "Work"}), false},
		{"entity from string", TypeEntity, "c-2", EntityValue(EntityRef{ID: "c-2"}), false},
		{"entity requires id", TypeEntity, map[string]any{"title": "Work"}, Value{}, true},
		{"unknown type", ParameterType("blob"), "x", Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.typ, tt.raw)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Kind() != tt.want.Kind() {
				t.Fatalf("Kind = %q, want %q", got.Kind(), tt.want.Kind())
			}
			switch got.Kind() {
			case TypeDate:
				gotTime, _ := got.AsTime()
				wantTime, _ := tt.want.AsTime()
				if !gotTime.Equal(wantTime) {
					t.Errorf("AsTime = %v, want %v", gotTime, wantTime)
				}
			case TypeEntity:
				gotEnt, _ := got.AsEntity()
				wantEnt, _ := tt.want.AsEntity()
				if gotEnt.ID != wantEnt.ID || gotEnt.Title != wantEnt.Title {
					t.Errorf("AsEntity = %+v, want %+v", gotEnt, wantEnt)
				}
			default:
				if got.Wire() != tt.want.Wire() {
					t.Errorf("Wire = %v, want %v", got.Wire(), tt.want.Wire())
				}
			}
		})
	}
}

func TestValueWire(t *testing.T) {
	aDate := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value Value
		want  any
	}{
		{"string", StringValue("hi"), "hi"},
		{"integer", IntegerValue(5), int64(5)},
		{"boolean", BooleanValue(true), true},
		{"double", DoubleValue(1.5), 1.5},
		{"date", DateValue(aDate), "2024-03-01T10:30:00Z"},
		{"url", URLValue("https://example.com"), "https://example.com"},
		{"file", FileValue("/tmp/x"), "/tmp/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Wire(); got != tt.want {
				t.Errorf("Wire() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}

	entity := EntityValue(EntityRef{ID: "c-1", Title: "Work"}).Wire()
	m, ok := entity.(map[string]any)
	if !ok {
		t.Fatalf("entity Wire() = %T, want map", entity)
	}
	if m["id"] != "c-1" || m["title"] != "Work" {
		t.Errorf("entity Wire() = %v", m)
	}
}

func orderCoffeeDescriptor() Descriptor {
	return Descriptor{
		Identifier: "order_coffee",
		Title:      "Order Coffee",
		Parameters: []Parameter{
			{Name: "drink", Type: TypeString},
			{Name: "amount", Type: TypeInteger, IsOptional: true, DefaultValue: int64(1)},
		},
	}
}

func TestNormalizeParams(t *testing.T) {
	d := orderCoffeeDescriptor()

	tests := []struct {
		name     string
		raw      map[string]any
		wantCode string
		check    func(t *testing.T, params Params)
	}{
		{
			name: "all present",
			raw:  map[string]any{"drink": "espresso", "amount": 2.0},
			check: func(t *testing.T, params Params) {
				if got, _ := params.String("drink"); got != "espresso" {
					t.Errorf("drink = %q", got)
				}
				if got, _ := params.Int("amount"); got != 2 {
					t.Errorf("amount = %d, want 2", got)
				}
			},
		},
		{
			name: "optional absent takes default",
			raw:  map[string]any{"drink": "flat white"},
			check: func(t *testing.T, params Params) {
				if got, _ := params.Int("amount"); got != 1 {
					t.Errorf("amount = %d, want default 1", got)
				}
			},
		},
		{
			name:     "required absent",
			raw:      map[string]any{"amount": 2.0},
			wantCode: CodeMissingRequiredParameter,
		},
		{
			name:     "required explicit null",
			raw:      map[string]any{"drink": nil, "amount": 2.0},
			wantCode: CodeMissingRequiredParameter,
		},
		{
			name:     "type mismatch",
			raw:      map[string]any{"drink": "mocha", "amount": "two"},
			wantCode: CodeParameterTypeMismatch,
		},
		{
			name: "undeclared keys dropped",
			raw:  map[string]any{"drink": "latte", "size": "large"},
			check: func(t *testing.T, params Params) {
				if params.Has("size") {
					t.Errorf("undeclared key should be dropped")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := d.NormalizeParams(tt.raw)

			if tt.wantCode != "" {
				if err == nil {
					t.Fatalf("expected %s error but got params %v", tt.wantCode, params)
				}
				if err.Code != tt.wantCode {
					t.Fatalf("error code = %q, want %q", err.Code, tt.wantCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, params)
		})
	}
}

func TestDescriptorNormalized(t *testing.T) {
	tests := []struct {
		name     string
		desc     Descriptor
		wantCode string
		check    func(t *testing.T, d Descriptor)
	}{
		{
			name: "auth policy defaults to none",
			desc: Descriptor{Identifier: "get_counter"},
			check: func(t *testing.T, d Descriptor) {
				if d.AuthenticationPolicy != AuthNone {
					t.Errorf("policy = %q, want %q", d.AuthenticationPolicy, AuthNone)
				}
			},
		},
		{
			name: "default coerced to canonical form",
			desc: Descriptor{
				Identifier: "order_coffee",
				Parameters: []Parameter{
					{Name: "amount", Type: TypeInteger, IsOptional: true, DefaultValue: 1.0},
				},
			},
			check: func(t *testing.T, d Descriptor) {
				if got := d.Parameters[0].DefaultValue; got != int64(1) {
					t.Errorf("default = %v (%T), want int64(1)", got, got)
				}
			},
		},
		{
			name: "default on required parameter dropped",
			desc: Descriptor{
				Identifier: "send_message",
				Parameters: []Parameter{
					{Name: "contactName", Type: TypeString, DefaultValue: "nobody"},
				},
			},
			check: func(t *testing.T, d Descriptor) {
				if d.Parameters[0].DefaultValue != nil {
					t.Errorf("default on required parameter should be dropped")
				}
			},
		},
		{
			name:     "invalid identifier",
			desc:     Descriptor{Identifier: "9bad"},
			wantCode: CodeValidationFailed,
		},
		{
			name:     "unknown auth policy",
			desc:     Descriptor{Identifier: "ok", AuthenticationPolicy: "sometimes"},
			wantCode: CodeValidationFailed,
		},
		{
			name: "invalid parameter name",
			desc: Descriptor{
				Identifier: "ok",
				Parameters: []Parameter{{Name: "bad-name", Type: TypeString}},
			},
			wantCode: CodeValidationFailed,
		},
		{
			name: "duplicate parameter names",
			desc: Descriptor{
				Identifier: "ok",
				Parameters: []Parameter{
					{Name: "x", Type: TypeString},
					{Name: "x", Type: TypeInteger},
				},
			},
			wantCode: CodeValidationFailed,
		},
		{
			name: "unknown parameter type",
			desc: Descriptor{
				Identifier: "ok",
				Parameters: []Parameter{{Name: "x", Type: "blob"}},
			},
			wantCode: CodeValidationFailed,
		},
		{
			name: "default does not match type",
			desc: Descriptor{
				Identifier: "ok",
				Parameters: []Parameter{
					{Name: "x", Type: TypeInteger, IsOptional: true, DefaultValue: "one"},
				},
			},
			wantCode: CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.desc.Normalized()

			if tt.wantCode != "" {
				if err == nil {
					t.Fatalf("expected %s error but got nil", tt.wantCode)
				}
				if err.Code != tt.wantCode {
					t.Fatalf("error code = %q, want %q", err.Code, tt.wantCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestNormalizedDoesNotMutateInput(t *testing.T) {
	d := Descriptor{
		Identifier: "order_coffee",
		Parameters: []Parameter{
			{Name: "amount", Type: TypeInteger, IsOptional: true, DefaultValue: 1.0},
		},
	}

	if _, err := d.Normalized(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Parameters[0].DefaultValue; got != 1.0 {
		t.Errorf("input descriptor was mutated: default = %v (%T)", got, got)
	}
}
