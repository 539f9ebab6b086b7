package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used by GormGrid.
type SheetModel struct {
	Name      string         `gorm:"primaryKey"`
	Headers   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

type RowModel struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	Sheet     string         `gorm:"not null;index:idx_row_sheet_position,priority:1"`
	Position  int            `gorm:"not null;index:idx_row_sheet_position,priority:2"`
	RecordID  string         `gorm:"not null;index"`
	Cells     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
