package tasks

import (
	"github.com/spf13/cast"
)

// Values is a convenience view over a map-shaped payload. Handlers use it
// to pull typed fields out of the opaque structured value without caring
// which wire format produced it (JSON numbers arrive as float64, binary
// decoders may produce int64 or []byte).
type Values map[string]any

// AsValues converts a payload into Values if it is map-shaped.
func AsValues(payload any) (Values, bool) {
	switch v := payload.(type) {
	case Values:
		return v, true
	case map[string]any:
		return Values(v), true
	case nil:
		return Values{}, true
	default:
		return nil, false
	}
}

// Has reports whether the key is present.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// String returns the field coerced to a string.
func (v Values) String(key string) string {
	return cast.ToString(v[key])
}

// Int returns the field coerced to an int.
func (v Values) Int(key string) int {
	return cast.ToInt(v[key])
}

// Int64 returns the field coerced to an int64.
func (v Values) Int64(key string) int64 {
	return cast.ToInt64(v[key])
}

// Float returns the field coerced to a float64.
func (v Values) Float(key string) float64 {
	return cast.ToFloat64(v[key])
}

// Bool returns the field coerced to a bool.
func (v Values) Bool(key string) bool {
	return cast.ToBool(v[key])
}

// StringSlice returns the field coerced to a []string.
func (v Values) StringSlice(key string) []string {
	return cast.ToStringSlice(v[key])
}

// Map returns a nested map field as Values, or nil if absent or not a map.
func (v Values) Map(key string) Values {
	nested, ok := AsValues(v[key])
	if !ok {
		return nil
	}
	return nested
}
