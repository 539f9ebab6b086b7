package store

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ISOLayout renders dates the way the web client expects them:
// UTC with millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// FormatDate renders t as a canonical ISO-8601 string in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseDate parses the date forms accepted from callers. Strings without a
// zone are read as UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// RowToRecord maps a positional row onto the schema's field keys. Positions
// past the end of the row come back as nil.
func RowToRecord(row []any, schema Schema) Record {
	rec := make(Record, len(schema.Columns))
	for i, col := range schema.Columns {
		var value any
		if i < len(row) {
			value = row[i]
		}
		if col.Type == Date {
			value = readDate(value)
		}
		rec[col.Key()] = value
	}
	return rec
}

func readDate(value any) any {
	switch v := value.(type) {
	case time.Time:
		return FormatDate(v)
	case *time.Time:
		if v == nil {
			return ""
		}
		return FormatDate(*v)
	case string:
		// JSON-backed grids hand dates back as strings.
		if v == "" {
			return v
		}
		if t, err := ParseDate(v); err == nil {
			return FormatDate(t)
		}
		return v
	default:
		return value
	}
}

// RecordToRow lays a record out in schema order. Field lookup ignores case;
// fields with no value become "" so the row never has holes. Date columns
// turn strings into time.Time and fail on unparseable input.
func RecordToRow(rec Record, schema Schema) ([]any, error) {
	lower := lowerKeyIndex(rec)
	row := make([]any, len(schema.Columns))
	for i, col := range schema.Columns {
		value, ok := lookupField(rec, lower, col)
		if !ok || value == nil {
			row[i] = ""
			continue
		}
		if col.Type == Date {
			v, err := writeDate(value)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Label, err)
			}
			row[i] = v
			continue
		}
		row[i] = value
	}
	return row, nil
}

func writeDate(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", nil
		}
		return ParseDate(v)
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return "", nil
		}
		return v.UTC(), nil
	default:
		return value, nil
	}
}

// lowerKeyIndex maps lowercased keys to the record's own keys. When two keys
// collide after lowering, the lexically smallest wins so the choice is stable.
func lowerKeyIndex(rec Record) map[string]string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[strings.ToLower(k)] = k
	}
	return out
}

func lookupField(rec Record, lower map[string]string, col Column) (any, bool) {
	if v, ok := rec[col.Key()]; ok {
		return v, true
	}
	if actual, ok := lower[strings.ToLower(col.Label)]; ok {
		return rec[actual], true
	}
	return nil, false
}
