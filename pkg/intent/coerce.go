package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"
)

// Coerce converts a raw wire value into a Value of the declared type.
//
// Wire numbers arrive as float64 from JSON decoding; integral float64 values
// coerce to integer, anything else is a mismatch. Dates accept RFC 3339
// strings and epoch-millisecond numbers and canonicalize to UTC. Entities
// accept a map with a non-empty "id" or a bare identifier string.
func Coerce(t ParameterType, raw any) (Value, error) {
	switch t {
	case TypeString:
		if s, ok := raw.(string); ok {
			return StringValue(s), nil
		}
	case TypeInteger:
		if i, ok := toInt64(raw); ok {
			return IntegerValue(i), nil
		}
	case TypeBoolean:
		if b, ok := raw.(bool); ok {
			return BooleanValue(b), nil
		}
	case TypeDouble:
		if f, ok := toFloat64(raw); ok {
			return DoubleValue(f), nil
		}
	case TypeDate:
		if tm, ok := toTime(raw); ok {
			return DateValue(tm), nil
		}
	case TypeURL:
		if s, ok := raw.(string); ok {
			u, err := url.Parse(s)
			if err == nil && u.Scheme != "" {
				return URLValue(s), nil
			}
		}
	case TypeFile:
		if s, ok := raw.(string); ok && s != "" {
			return FileValue(s), nil
		}
	case TypeEntity:
		if ref, ok := toEntity(raw); ok {
			return EntityValue(ref), nil
		}
	default:
		return Value{}, fmt.Errorf("unsupported parameter type %q", t)
	}
	return Value{}, fmt.Errorf("cannot coerce %T to %s", raw, t)
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat64(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toTime(raw any) (time.Time, bool) {
	switch d := raw.(type) {
	case time.Time:
		return d.UTC(), true
	case string:
		if tm, err := time.Parse(time.RFC3339Nano, d); err == nil {
			return tm.UTC(), true
		}
		if tm, err := time.Parse(time.RFC3339, d); err == nil {
			return tm.UTC(), true
		}
	case float64:
		if d == math.Trunc(d) {
			return time.UnixMilli(int64(d)).UTC(), true
		}
	case int64:
		return time.UnixMilli(d).UTC(), true
	case json.Number:
		if ms, err := d.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	}
	return time.Time{}, false
}

func toEntity(raw any) (EntityRef, bool) {
	switch e := raw.(type) {
	case EntityRef:
		if e.ID != "" {
			return e, true
		}
	case *EntityRef:
		if e != nil && e.ID != "" {
			return *e, true
		}
	case string:
		if e != "" {
			return EntityRef{ID: e}, true
		}
	case map[string]any:
		id, _ := e["id"].(string)
		if id == "" {
			return EntityRef{}, false
		}
		ref := EntityRef{ID: id}
		if title, ok := e["title"].(string); ok {
			ref.Title = title
		}
		if subtitle, ok := e["subtitle"].(string); ok {
			ref.Subtitle = subtitle
		}
		if attrs, ok := e["attributes"].(map[string]any); ok && len(attrs) > 0 {
			ref.Attributes = attrs
		}
		return ref, true
	}
	return EntityRef{}, false
}

// NormalizeParams validates and coerces a raw wire parameter map against the
// descriptor. Declared parameters present in raw are coerced to their types;
// an absent optional parameter takes its default when one is declared; an
// absent required parameter is a contract violation. Keys not declared on
// the descriptor are dropped.
func (d *Descriptor) NormalizeParams(raw map[string]any) (Params, *Error) {
	params := make(Params, len(d.Parameters))
	for i := range d.Parameters {
		p := &d.Parameters[i]
		rawValue, present := raw[p.Name]
		if present && rawValue != nil {
			v, err := Coerce(p.Type, rawValue)
			if err != nil {
				return nil, &Error{
					Code:      CodeParameterTypeMismatch,
					Message:   fmt.Sprintf("parameter %q: %v", p.Name, err),
					Intent:    d.Identifier,
					Parameter: p.Name,
				}
			}
			params[p.Name] = v
			continue
		}
		if !p.IsOptional {
			return nil, &Error{
				Code:      CodeMissingRequiredParameter,
				Message:   fmt.Sprintf("missing required parameter %q", p.Name),
				Intent:    d.Identifier,
				Parameter: p.Name,
			}
		}
		if p.DefaultValue == nil {
			continue
		}
		v, err := Coerce(p.Type, p.DefaultValue)
		if err != nil {
			return nil, &Error{
				Code:      CodeParameterTypeMismatch,
				Message:   fmt.Sprintf("default for parameter %q: %v", p.Name, err),
				Intent:    d.Identifier,
				Parameter: p.Name,
			}
		}
		params[p.Name] = v
	}
	return params, nil
}

// Normalized validates the descriptor and returns a canonical copy: the
// authentication policy defaults to none, parameter defaults are coerced to
// their canonical in-memory forms, and defaults declared on non-optional
// parameters are dropped.
func (d Descriptor) Normalized() (Descriptor, *Error) {
	if !ValidIdentifier(d.Identifier) {
		return Descriptor{}, &Error{
			Code:    CodeValidationFailed,
			Message: fmt.Sprintf("invalid intent identifier %q: must start with a letter and contain only letters, digits, dots, hyphens, underscores", d.Identifier),
			Intent:  d.Identifier,
		}
	}
	if d.AuthenticationPolicy == "" {
		d.AuthenticationPolicy = AuthNone
	}
	if !d.AuthenticationPolicy.Valid() {
		return Descriptor{}, &Error{
			Code:    CodeValidationFailed,
			Message: fmt.Sprintf("unknown authentication policy %q", d.AuthenticationPolicy),
			Intent:  d.Identifier,
		}
	}

	var params []Parameter
	if len(d.Parameters) > 0 {
		params = make([]Parameter, len(d.Parameters))
		copy(params, d.Parameters)
	}
	seen := make(map[string]bool, len(params))
	for i := range params {
		p := &params[i]
		if !ValidParameterName(p.Name) {
			return Descriptor{}, &Error{
				Code:      CodeValidationFailed,
				Message:   fmt.Sprintf("invalid parameter name %q: must start with a letter and contain only letters, digits, underscores", p.Name),
				Intent:    d.Identifier,
				Parameter: p.Name,
			}
		}
		if seen[p.Name] {
			return Descriptor{}, &Error{
				Code:      CodeValidationFailed,
				Message:   fmt.Sprintf("duplicate parameter name %q", p.Name),
				Intent:    d.Identifier,
				Parameter: p.Name,
			}
		}
		seen[p.Name] = true
		if !p.Type.Valid() {
			return Descriptor{}, &Error{
				Code:      CodeValidationFailed,
				Message:   fmt.Sprintf("parameter %q has unknown type %q", p.Name, p.Type),
				Intent:    d.Identifier,
				Parameter: p.Name,
			}
		}
		if p.DefaultValue == nil {
			continue
		}
		if !p.IsOptional {
			// A default on a required parameter is meaningless: the value
			// must always be supplied at invocation.
			p.DefaultValue = nil
			continue
		}
		v, err := Coerce(p.Type, p.DefaultValue)
		if err != nil {
			return Descriptor{}, &Error{
				Code:      CodeValidationFailed,
				Message:   fmt.Sprintf("default for parameter %q does not match declared type %s: %v", p.Name, p.Type, err),
				Intent:    d.Identifier,
				Parameter: p.Name,
			}
		}
		p.DefaultValue = canonicalDefault(v)
	}
	d.Parameters = params
	return d, nil
}

// Validate reports the first validation failure of the descriptor, or nil.
func (d Descriptor) Validate() *Error {
	_, err := d.Normalized()
	return err
}

// canonicalDefault maps a coerced Value back to its canonical in-memory
// default form (see Parameter.DefaultValue).
func canonicalDefault(v Value) any {
	switch v.Kind() {
	case TypeDate:
		t, _ := v.AsTime()
		return t
	case TypeEntity:
		ref, _ := v.AsEntity()
		return ref
	default:
		return v.Wire()
	}
}
