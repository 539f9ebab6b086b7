package store

import (
	"context"
	"errors"
)

var (
	// ErrUnknownSheet is returned by grids for sheets that were never ensured.
	ErrUnknownSheet = errors.New("unknown sheet")
	// ErrRowMoved is returned when a positional write finds a different id at
	// the target position than the caller scanned.
	ErrRowMoved = errors.New("row moved")
	// ErrDuplicateID is returned when create is given an id already in use.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidDate is returned when a date column receives an unparseable string.
	ErrInvalidDate = errors.New("invalid date")
)

// Grid is the storage port behind every Table: a set of named sheets, each
// a header row followed by positional data rows. Position 0 is the first
// row after the header. Deleting a row shifts every later row up by one.
//
// The first cell of each row is the record id; OverwriteRow and DeleteRow
// check it against expectID and return ErrRowMoved on mismatch.
type Grid interface {
	// EnsureSheet creates the sheet with its header row when it does not exist.
	EnsureSheet(ctx context.Context, sheet string, headers []string) error
	// ReadRows returns every data row in storage order.
	ReadRows(ctx context.Context, sheet string) ([][]any, error)
	AppendRow(ctx context.Context, sheet string, row []any) error
	OverwriteRow(ctx context.Context, sheet string, pos int, expectID string, row []any) error
	DeleteRow(ctx context.Context, sheet string, pos int, expectID string) error
}
