package store

import (
	"strings"

	"github.com/spf13/cast"
)

// Record is a field-keyed view of one row. Keys follow the schema's
// HeaderToKey mapping; values are whatever the grid holds, with date
// columns rendered as ISO-8601 strings.
type Record map[string]any

// ID returns the record identifier.
func (r Record) ID() string {
	return r.String("id")
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get looks up a field, falling back to a case-insensitive match.
func (r Record) Get(key string) (any, bool) {
	if v, ok := r[key]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// String returns the field as a string; missing fields yield "".
func (r Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// Float returns the field as a float64. Empty or non-numeric cells yield 0.
func (r Record) Float(key string) float64 {
	v, ok := r.Get(key)
	if !ok {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

// Int returns the field as an int. Empty or non-numeric cells yield 0.
func (r Record) Int(key string) int {
	v, ok := r.Get(key)
	if !ok {
		return 0
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	n, err := cast.ToIntE(v)
	if err == nil {
		return n
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return int(f)
}

// Bool returns the field as a bool; "true", "1" and true are truthy.
func (r Record) Bool(key string) bool {
	v, ok := r.Get(key)
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}
