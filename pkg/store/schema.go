package store

import "strings"

// ColumnType tags how a column's cells are coerced on read and write.
type ColumnType int

const (
	// Value cells pass through unchanged.
	Value ColumnType = iota
	// Date cells hold native time.Time values in the grid and ISO-8601 strings in records.
	Date
)

// Column is one labeled position in a sheet's header row.
type Column struct {
	Label string
	Type  ColumnType
}

// Key returns the record field name for the column label.
func (c Column) Key() string {
	return HeaderToKey(c.Label)
}

// Col declares a column with an explicit type.
func Col(label string, typ ColumnType) Column {
	return Column{Label: label, Type: typ}
}

// Schema is the ordered header row of one sheet. Position i of every row
// corresponds to Columns[i].
type Schema struct {
	Sheet   string
	Columns []Column
}

// NewSchema builds a schema from explicit columns.
func NewSchema(sheet string, cols ...Column) Schema {
	out := make([]Column, len(cols))
	copy(out, cols)
	return Schema{Sheet: sheet, Columns: out}
}

// InferSchema builds a schema from bare labels. A label containing "fecha"
// (any case) is typed as Date, every other label as Value.
func InferSchema(sheet string, labels ...string) Schema {
	cols := make([]Column, 0, len(labels))
	for _, label := range labels {
		typ := Value
		if strings.Contains(strings.ToLower(label), "fecha") {
			typ = Date
		}
		cols = append(cols, Column{Label: label, Type: typ})
	}
	return Schema{Sheet: sheet, Columns: cols}
}

// Headers returns the header row labels.
func (s Schema) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Label
	}
	return out
}

// Keys returns the record field names in column order.
func (s Schema) Keys() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Key()
	}
	return out
}

// IndexOf resolves a field or label name to its column position,
// ignoring case. It returns -1 when no column matches.
func (s Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if strings.EqualFold(c.Label, name) {
			return i
		}
	}
	return -1
}

// HeaderToKey maps a header label to its record key. All-uppercase labels
// (acronyms such as "ID" or "DNI") become all-lowercase; anything else gets
// its first letter lowered ("FechaIngreso" -> "fechaIngreso").
func HeaderToKey(label string) string {
	if label == "" {
		return ""
	}
	if label == strings.ToUpper(label) {
		return strings.ToLower(label)
	}
	return strings.ToLower(label[:1]) + label[1:]
}
