package intent

import "time"

// EntityRef identifies an app entity passed as an intent parameter. The id is
// what the host round-trips in shortcut bindings; title and subtitle are
// display hints.
type EntityRef struct {
	ID         string         `json:"id"`
	Title      string         `json:"title,omitempty"`
	Subtitle   string         `json:"subtitle,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Value is a typed parameter value: one arm per supported parameter type.
// Raw wire values are converted into Values at the dispatcher boundary so
// handlers never see untyped data.
type Value struct {
	kind ParameterType
	str  string
	i    int64
	f    float64
	b    bool
	t    time.Time
	ent  *EntityRef
}

// StringValue builds a string Value.
func StringValue(s string) Value { return Value{kind: TypeString, str: s} }

// IntegerValue builds an integer Value.
func IntegerValue(i int64) Value { return Value{kind: TypeInteger, i: i} }

// BooleanValue builds a boolean Value.
func BooleanValue(b bool) Value { return Value{kind: TypeBoolean, b: b} }

// DoubleValue builds a double Value.
func DoubleValue(f float64) Value { return Value{kind: TypeDouble, f: f} }

// DateValue builds a date Value; the time is stored in UTC.
func DateValue(t time.Time) Value { return Value{kind: TypeDate, t: t.UTC()} }

// URLValue builds a url Value from an already-validated absolute URL string.
func URLValue(raw string) Value { return Value{kind: TypeURL, str: raw} }

// FileValue builds a file Value from a path or file URL string.
func FileValue(path string) Value { return Value{kind: TypeFile, str: path} }

// EntityValue builds an entity Value.
func EntityValue(ref EntityRef) Value { return Value{kind: TypeEntity, ent: &ref} }

// Kind returns the parameter type this Value carries.
func (v Value) Kind() ParameterType { return v.kind }

// AsString returns the string form of a string, url or file Value.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case TypeString, TypeURL, TypeFile:
		return v.str, true
	}
	return "", false
}

// AsInt returns an integer Value.
func (v Value) AsInt() (int64, bool) {
	if v.kind == TypeInteger {
		return v.i, true
	}
	return 0, false
}

// AsBool returns a boolean Value.
func (v Value) AsBool() (bool, bool) {
	if v.kind == TypeBoolean {
		return v.b, true
	}
	return false, false
}

// AsFloat returns a double Value, or an integer Value widened to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case TypeDouble:
		return v.f, true
	case TypeInteger:
		return float64(v.i), true
	}
	return 0, false
}

// AsTime returns a date Value.
func (v Value) AsTime() (time.Time, bool) {
	if v.kind == TypeDate {
		return v.t, true
	}
	return time.Time{}, false
}

// AsEntity returns an entity Value.
func (v Value) AsEntity() (*EntityRef, bool) {
	if v.kind == TypeEntity {
		return v.ent, true
	}
	return nil, false
}

// Wire returns the JSON-safe wire form of the Value: primitives and strings
// as-is, dates as RFC 3339 (nanosecond) UTC strings, entities as string-keyed
// maps.
func (v Value) Wire() any {
	switch v.kind {
	case TypeString, TypeURL, TypeFile:
		return v.str
	case TypeInteger:
		return v.i
	case TypeBoolean:
		return v.b
	case TypeDouble:
		return v.f
	case TypeDate:
		return v.t.UTC().Format(time.RFC3339Nano)
	case TypeEntity:
		return entityToMap(v.ent)
	}
	return nil
}

func entityToMap(ref *EntityRef) map[string]any {
	if ref == nil {
		return nil
	}
	m := map[string]any{"id": ref.ID}
	if ref.Title != "" {
		m["title"] = ref.Title
	}
	if ref.Subtitle != "" {
		m["subtitle"] = ref.Subtitle
	}
	if len(ref.Attributes) > 0 {
		m["attributes"] = ref.Attributes
	}
	return m
}

// Params is the normalized parameter bag a handler receives: every entry has
// been coerced to its declared type, with defaults substituted for absent
// optional parameters.
type Params map[string]Value

// Has reports whether a parameter is present.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// String returns a string, url or file parameter.
func (p Params) String(name string) (string, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Int returns an integer parameter.
func (p Params) Int(name string) (int64, bool) {
	v, ok := p[name]
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// Bool returns a boolean parameter.
func (p Params) Bool(name string) (bool, bool) {
	v, ok := p[name]
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// Float returns a double (or widened integer) parameter.
func (p Params) Float(name string) (float64, bool) {
	v, ok := p[name]
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

// Time returns a date parameter.
func (p Params) Time(name string) (time.Time, bool) {
	v, ok := p[name]
	if !ok {
		return time.Time{}, false
	}
	return v.AsTime()
}

// Entity returns an entity parameter.
func (p Params) Entity(name string) (*EntityRef, bool) {
	v, ok := p[name]
	if !ok {
		return nil, false
	}
	return v.AsEntity()
}

// Wire returns the bag in wire form, suitable for donation events and for
// forwarding to an app over the channel.
func (p Params) Wire() map[string]any {
	if len(p) == 0 {
		return map[string]any{}
	}
	m := make(map[string]any, len(p))
	for name, v := range p {
		m[name] = v.Wire()
	}
	return m
}
