package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	createdAtKey = "createdAt"
	updatedAtKey = "updatedAt"

	maxWriteAttempts = 3
)

// ChangeKind names a mutation observed on a table.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change describes one committed mutation.
type Change struct {
	Sheet  string
	Kind   ChangeKind
	ID     string
	Record Record
	At     time.Time
}

// Observer is notified after every committed mutation.
type Observer interface {
	RecordChanged(ctx context.Context, change Change)
}

// TableOption customizes a Table.
type TableOption func(*Table)

// WithObserver registers an observer for committed mutations.
func WithObserver(o Observer) TableOption {
	return func(t *Table) {
		if o != nil {
			t.observers = append(t.observers, o)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) TableOption {
	return func(t *Table) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDPrefix overrides the id prefix (default: first letter of the sheet).
func WithIDPrefix(prefix string) TableOption {
	return func(t *Table) {
		t.prefix = prefix
	}
}

// WithValidator checks every record before it is written. Create passes the
// new record, Update the merged one.
func WithValidator(check func(Record) error) TableOption {
	return func(t *Table) {
		t.validate = check
	}
}

// Table maps records of one schema onto a sheet of a Grid. Every read
// re-scans the sheet; nothing is cached between calls. Mutations on the
// same Table are serialized.
type Table struct {
	grid      Grid
	schema    Schema
	prefix    string
	now       func() time.Time
	observers []Observer
	validate  func(Record) error

	mu      sync.Mutex
	ensured atomic.Bool
}

// NewTable binds a schema to a grid. The first schema column holds the id.
func NewTable(grid Grid, schema Schema, opts ...TableOption) *Table {
	t := &Table{
		grid:   grid,
		schema: schema,
		prefix: SheetPrefix(schema.Sheet),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Schema returns the table schema.
func (t *Table) Schema() Schema {
	return t.schema
}

// Ensure creates the sheet with its header row when it does not exist yet.
func (t *Table) Ensure(ctx context.Context) error {
	if t.ensured.Load() {
		return nil
	}
	if err := t.grid.EnsureSheet(ctx, t.schema.Sheet, t.schema.Headers()); err != nil {
		return fmt.Errorf("ensure sheet %s: %w", t.schema.Sheet, err)
	}
	t.ensured.Store(true)
	return nil
}

func (t *Table) rows(ctx context.Context) ([][]any, error) {
	if err := t.Ensure(ctx); err != nil {
		return nil, err
	}
	rows, err := t.grid.ReadRows(ctx, t.schema.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", t.schema.Sheet, err)
	}
	return rows, nil
}

// GetAll returns every record in storage order.
func (t *Table) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := t.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, RowToRecord(row, t.schema))
	}
	return out, nil
}

// GetByID returns the first record whose id cell equals id.
func (t *Table) GetByID(ctx context.Context, id string) (Record, bool, error) {
	rows, err := t.rows(ctx)
	if err != nil {
		return nil, false, err
	}
	if pos := findRow(rows, id); pos >= 0 {
		return RowToRecord(rows[pos], t.schema), true, nil
	}
	return nil, false, nil
}

// GetByField returns records whose cell for the named column equals value.
// The column name is matched ignoring case; the value comparison is strict,
// so 3 and "3" do not match. Unknown columns yield no records.
func (t *Table) GetByField(ctx context.Context, name string, value any) ([]Record, error) {
	idx := t.schema.IndexOf(name)
	if idx < 0 {
		return []Record{}, nil
	}
	rows, err := t.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0)
	for _, row := range rows {
		if idx < len(row) && sameValue(row[idx], value) {
			out = append(out, RowToRecord(row, t.schema))
		}
	}
	return out, nil
}

// Create appends a record. An id supplied by the caller is kept when unused
// and rejected with ErrDuplicateID otherwise; without one an id is generated.
// The returned record is the persisted row read back.
func (t *Table) Create(ctx context.Context, data Record) (Record, error) {
	t.mu.Lock()
	rec, err := t.create(ctx, data)
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	t.notify(ctx, ChangeCreated, rec)
	return rec, nil
}

func (t *Table) create(ctx context.Context, data Record) (Record, error) {
	if err := t.Ensure(ctx); err != nil {
		return nil, err
	}
	full := t.normalize(data)
	idKey := t.idKey()
	id := strings.TrimSpace(full.String(idKey))
	if id != "" {
		rows, err := t.rows(ctx)
		if err != nil {
			return nil, err
		}
		if findRow(rows, id) >= 0 {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
	} else {
		id = GenerateID(t.prefix)
	}
	now := FormatDate(t.now())
	full[idKey] = id
	full[createdAtKey] = now
	full[updatedAtKey] = now
	if err := t.check(full); err != nil {
		return nil, err
	}

	row, err := RecordToRow(full, t.schema)
	if err != nil {
		return nil, err
	}
	if err := t.grid.AppendRow(ctx, t.schema.Sheet, row); err != nil {
		return nil, fmt.Errorf("append to %s: %w", t.schema.Sheet, err)
	}
	return RowToRecord(row, t.schema), nil
}

// Update merges patch over the stored record and writes it back in place.
// The id never changes and updatedAt is refreshed. It reports false when no
// record has the id.
func (t *Table) Update(ctx context.Context, id string, patch Record) (Record, bool, error) {
	t.mu.Lock()
	rec, ok, err := t.update(ctx, id, patch)
	t.mu.Unlock()
	if err != nil || !ok {
		return nil, ok, err
	}
	t.notify(ctx, ChangeUpdated, rec)
	return rec, true, nil
}

func (t *Table) update(ctx context.Context, id string, patch Record) (Record, bool, error) {
	changes := t.normalize(patch)
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		rows, err := t.rows(ctx)
		if err != nil {
			return nil, false, err
		}
		pos := findRow(rows, id)
		if pos < 0 {
			return nil, false, nil
		}
		merged := RowToRecord(rows[pos], t.schema)
		for k, v := range changes {
			merged[k] = v
		}
		merged[t.idKey()] = id
		merged[updatedAtKey] = FormatDate(t.now())
		if err := t.check(merged); err != nil {
			return nil, false, err
		}

		row, err := RecordToRow(merged, t.schema)
		if err != nil {
			return nil, false, err
		}
		err = t.grid.OverwriteRow(ctx, t.schema.Sheet, pos, id, row)
		if errors.Is(err, ErrRowMoved) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("overwrite %s row: %w", t.schema.Sheet, err)
		}
		return RowToRecord(row, t.schema), true, nil
	}
	return nil, false, fmt.Errorf("update %s %q: %w after %d attempts", t.schema.Sheet, id, ErrRowMoved, maxWriteAttempts)
}

// Delete physically removes the record. It reports false when no record has the id.
func (t *Table) Delete(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	rec, ok, err := t.delete(ctx, id)
	t.mu.Unlock()
	if err != nil || !ok {
		return false, err
	}
	t.notify(ctx, ChangeDeleted, rec)
	return true, nil
}

func (t *Table) delete(ctx context.Context, id string) (Record, bool, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		rows, err := t.rows(ctx)
		if err != nil {
			return nil, false, err
		}
		pos := findRow(rows, id)
		if pos < 0 {
			return nil, false, nil
		}
		rec := RowToRecord(rows[pos], t.schema)
		err = t.grid.DeleteRow(ctx, t.schema.Sheet, pos, id)
		if errors.Is(err, ErrRowMoved) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("delete %s row: %w", t.schema.Sheet, err)
		}
		return rec, true, nil
	}
	return nil, false, fmt.Errorf("delete %s %q: %w after %d attempts", t.schema.Sheet, id, ErrRowMoved, maxWriteAttempts)
}

// normalize re-keys a caller record onto schema keys, matching labels
// without regard to case. Fields outside the schema are dropped.
func (t *Table) normalize(data Record) Record {
	out := make(Record, len(data))
	for k, v := range data {
		idx := t.schema.IndexOf(k)
		if idx < 0 {
			continue
		}
		key := t.schema.Columns[idx].Key()
		if _, exact := data[key]; exact && k != key {
			continue
		}
		out[key] = v
	}
	return out
}

func (t *Table) check(rec Record) error {
	if t.validate == nil {
		return nil
	}
	return t.validate(rec)
}

func (t *Table) idKey() string {
	if len(t.schema.Columns) == 0 {
		return "id"
	}
	return t.schema.Columns[0].Key()
}

func (t *Table) notify(ctx context.Context, kind ChangeKind, rec Record) {
	if len(t.observers) == 0 {
		return
	}
	change := Change{
		Sheet:  t.schema.Sheet,
		Kind:   kind,
		ID:     rec.String(t.idKey()),
		Record: rec.Clone(),
		At:     t.now(),
	}
	for _, o := range t.observers {
		o.RecordChanged(ctx, change)
	}
}

func findRow(rows [][]any, id string) int {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok && s == id {
			return i
		}
	}
	return -1
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
