package intent

import (
	"fmt"
	"time"
)

// ToMap serializes the parameter into a wire map. Fields holding their
// default value are omitted, so FromMap of the result reconstructs an equal
// parameter.
func (p Parameter) ToMap() map[string]any {
	m := map[string]any{
		"name": p.Name,
		"type": string(p.Type),
	}
	if p.Title != "" {
		m["title"] = p.Title
	}
	if p.Description != "" {
		m["description"] = p.Description
	}
	if p.IsOptional {
		m["isOptional"] = true
	}
	if p.DefaultValue != nil {
		m["defaultValue"] = wireDefault(p.DefaultValue)
	}
	return m
}

// ParameterFromMap deserializes a parameter from a wire map.
func ParameterFromMap(m map[string]any) (Parameter, error) {
	p := Parameter{
		Name:        stringField(m, "name"),
		Title:       stringField(m, "title"),
		Type:        ParameterType(stringField(m, "type")),
		Description: stringField(m, "description"),
		IsOptional:  boolField(m, "isOptional"),
	}
	if p.Name == "" {
		return Parameter{}, fmt.Errorf("parameter map missing name")
	}
	if !p.Type.Valid() {
		return Parameter{}, fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
	}
	if raw, ok := m["defaultValue"]; ok && raw != nil {
		v, err := Coerce(p.Type, raw)
		if err != nil {
			return Parameter{}, fmt.Errorf("parameter %q: default value: %w", p.Name, err)
		}
		p.DefaultValue = canonicalDefault(v)
	}
	return p, nil
}

// ToMap serializes the descriptor into a wire map suitable for transport or
// persistence. Only non-default fields are emitted.
func (d Descriptor) ToMap() map[string]any {
	m := map[string]any{
		"identifier": d.Identifier,
	}
	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Parameters) > 0 {
		params := make([]any, 0, len(d.Parameters))
		for _, p := range d.Parameters {
			params = append(params, p.ToMap())
		}
		m["parameters"] = params
	}
	if d.IsEligibleForSearch {
		m["isEligibleForSearch"] = true
	}
	if d.IsEligibleForPrediction {
		m["isEligibleForPrediction"] = true
	}
	if d.AuthenticationPolicy != "" && d.AuthenticationPolicy != AuthNone {
		m["authenticationPolicy"] = string(d.AuthenticationPolicy)
	}
	if d.MinimumOSVersion != "" {
		m["minimumOSVersion"] = d.MinimumOSVersion
	}
	return m
}

// DescriptorFromMap deserializes a descriptor from a wire map. Absent fields
// take their documented defaults; an absent authentication policy means none.
func DescriptorFromMap(m map[string]any) (Descriptor, error) {
	d := Descriptor{
		Identifier:              stringField(m, "identifier"),
		Title:                   stringField(m, "title"),
		Description:             stringField(m, "description"),
		IsEligibleForSearch:     boolField(m, "isEligibleForSearch"),
		IsEligibleForPrediction: boolField(m, "isEligibleForPrediction"),
		AuthenticationPolicy:    AuthPolicy(stringField(m, "authenticationPolicy")),
		MinimumOSVersion:        stringField(m, "minimumOSVersion"),
	}
	if d.Identifier == "" {
		return Descriptor{}, fmt.Errorf("descriptor map missing identifier")
	}
	if d.AuthenticationPolicy == "" {
		d.AuthenticationPolicy = AuthNone
	}
	if raw, ok := m["parameters"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return Descriptor{}, fmt.Errorf("descriptor %q: parameters must be a list", d.Identifier)
		}
		d.Parameters = make([]Parameter, 0, len(list))
		for i, item := range list {
			pm, ok := item.(map[string]any)
			if !ok {
				return Descriptor{}, fmt.Errorf("descriptor %q: parameter %d is not a map", d.Identifier, i)
			}
			p, err := ParameterFromMap(pm)
			if err != nil {
				return Descriptor{}, fmt.Errorf("descriptor %q: %w", d.Identifier, err)
			}
			d.Parameters = append(d.Parameters, p)
		}
	}
	return d, nil
}

// ToMap serializes the invocation result into a wire map.
func (r Result) ToMap() map[string]any {
	m := map[string]any{
		"success": r.Success,
	}
	if r.Value != nil {
		m["value"] = wireAny(r.Value)
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.NeedsToContinueInApp {
		m["needsToContinueInApp"] = true
	}
	if r.OpensIntent != "" {
		m["opensIntent"] = r.OpensIntent
	}
	return m
}

// ResultFromMap deserializes an invocation result from a wire map.
func ResultFromMap(m map[string]any) (Result, error) {
	r := Result{
		Success:              boolField(m, "success"),
		Error:                stringField(m, "error"),
		NeedsToContinueInApp: boolField(m, "needsToContinueInApp"),
		OpensIntent:          stringField(m, "opensIntent"),
	}
	if v, ok := m["value"]; ok {
		r.Value = v
	}
	return r, nil
}

// wireDefault maps a canonical in-memory default to its wire form.
func wireDefault(v any) any {
	switch d := v.(type) {
	case time.Time:
		return d.UTC().Format(time.RFC3339Nano)
	case EntityRef:
		return entityToMap(&d)
	case *EntityRef:
		if d == nil {
			return nil
		}
		return entityToMap(d)
	default:
		return v
	}
}

// wireAny maps an arbitrary result value to its wire form. Typed values,
// times and entity references are lowered to JSON-safe shapes; anything else
// passes through unchanged.
func wireAny(v any) any {
	switch x := v.(type) {
	case Value:
		return x.Wire()
	case *Value:
		if x == nil {
			return nil
		}
		return x.Wire()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case EntityRef:
		return entityToMap(&x)
	case *EntityRef:
		if x == nil {
			return nil
		}
		return entityToMap(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = wireAny(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = wireAny(item)
		}
		return out
	default:
		return v
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return false
}
