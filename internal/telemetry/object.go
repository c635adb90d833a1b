package telemetry

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Object is one decoded JSON object from a device payload.
//
// The phone reports nearly every scalar as a string ("245", "16.0") and a few
// as JSON numbers; the extractors below accept both and report absence instead
// of failing. Parsers must only read payloads through these helpers.
type Object map[string]any

// String returns the scalar at key rendered as text.
func (o Object) String(key string) (string, bool) {
	v, ok := o[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// Text returns the scalar at key, or "" when it is absent or empty.
func (o Object) Text(key string) string {
	s, _ := o.String(key)
	return s
}

// Int returns the integer at key, or nil when absent or not an integer.
func (o Object) Int(key string) *int {
	s, ok := o.String(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// Float returns the number at key, or nil when absent or not numeric.
func (o Object) Float(key string) *float64 {
	s, ok := o.String(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

// Object returns the nested object at key, or nil.
func (o Object) Object(key string) Object {
	return AsObject(o[key])
}

// Objects returns the list of objects at key. Non-object elements are skipped.
func (o Object) Objects(key string) []Object {
	return AsObjects(o[key])
}

// AsObject converts a decoded JSON value into an Object, or nil if it is not one.
func AsObject(v any) Object {
	switch t := v.(type) {
	case map[string]any:
		return Object(t)
	case Object:
		return t
	default:
		return nil
	}
}

// AsObjects converts a decoded JSON array into a list of Objects.
func AsObjects(v any) []Object {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Object, 0, len(items))
	for _, it := range items {
		if obj := AsObject(it); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}
