package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryGrid keeps sheets in-process. Cells are stored as given, so date
// columns hold real time.Time values like a spreadsheet would.
type MemoryGrid struct {
	mu     sync.RWMutex
	sheets map[string]*memorySheet
}

type memorySheet struct {
	headers []string
	rows    [][]any
}

// NewMemoryGrid initializes an empty in-memory grid.
func NewMemoryGrid() *MemoryGrid {
	return &MemoryGrid{sheets: make(map[string]*memorySheet)}
}

// EnsureSheet creates the sheet when missing. Existing sheets keep their rows.
func (m *MemoryGrid) EnsureSheet(_ context.Context, sheet string, headers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[sheet]; ok {
		return nil
	}
	m.sheets[sheet] = &memorySheet{headers: append([]string(nil), headers...)}
	return nil
}

// Headers returns the header row of a sheet.
func (m *MemoryGrid) Headers(sheet string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[sheet]
	if !ok {
		return nil, false
	}
	return append([]string(nil), s.headers...), true
}

// ReadRows returns copies of every data row.
func (m *MemoryGrid) ReadRows(_ context.Context, sheet string) ([][]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	out := make([][]any, len(s.rows))
	for i, row := range s.rows {
		out[i] = append([]any(nil), row...)
	}
	return out, nil
}

// AppendRow adds a row after the last one.
func (m *MemoryGrid) AppendRow(_ context.Context, sheet string, row []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	s.rows = append(s.rows, append([]any(nil), row...))
	return nil
}

// OverwriteRow replaces the row at pos.
func (m *MemoryGrid) OverwriteRow(_ context.Context, sheet string, pos int, expectID string, row []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.checkPosition(sheet, pos, expectID)
	if err != nil {
		return err
	}
	s.rows[pos] = append([]any(nil), row...)
	return nil
}

// DeleteRow removes the row at pos and shifts later rows up.
func (m *MemoryGrid) DeleteRow(_ context.Context, sheet string, pos int, expectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.checkPosition(sheet, pos, expectID)
	if err != nil {
		return err
	}
	s.rows = append(s.rows[:pos], s.rows[pos+1:]...)
	return nil
}

func (m *MemoryGrid) checkPosition(sheet string, pos int, expectID string) (*memorySheet, error) {
	s, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	if pos < 0 || pos >= len(s.rows) || len(s.rows[pos]) == 0 || s.rows[pos][0] != expectID {
		return nil, ErrRowMoved
	}
	return s, nil
}
