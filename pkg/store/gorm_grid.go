package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const migrateLockID int64 = 52718801

// GormGrid implements Grid on Postgres. Each data row is one row_models
// record keyed by (sheet, position); positional writes lock the sheet row
// so concurrent processes cannot interleave shifts.
type GormGrid struct {
	db *gorm.DB
}

// NewGormGrid opens the DB and runs auto-migrations.
func NewGormGrid(dsn string) (*GormGrid, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&SheetModel{}, &RowModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormGrid{db: db}, nil
}

// NewGormGridWithDB wraps an already migrated connection.
func NewGormGridWithDB(db *gorm.DB) *GormGrid {
	return &GormGrid{db: db}
}

// Close closes the connection pool.
func (g *GormGrid) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// EnsureSheet inserts the sheet header when missing.
func (g *GormGrid) EnsureSheet(ctx context.Context, sheet string, headers []string) error {
	data, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	model := SheetModel{Name: sheet, Headers: datatypes.JSON(data), CreatedAt: time.Now().UTC()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

// ReadRows returns the sheet rows ordered by position.
func (g *GormGrid) ReadRows(ctx context.Context, sheet string) ([][]any, error) {
	db := g.db.WithContext(ctx)
	if err := sheetExists(db, sheet); err != nil {
		return nil, err
	}
	var models []RowModel
	if err := db.Where("sheet = ?", sheet).Order("position ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(models))
	for _, m := range models {
		var row []any
		if err := json.Unmarshal(m.Cells, &row); err != nil {
			return nil, fmt.Errorf("decode row %d of %s: %w", m.Position, sheet, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRow stores the row after the current last position.
func (g *GormGrid) AppendRow(ctx context.Context, sheet string, row []any) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSheet(tx, sheet); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&RowModel{}).Where("sheet = ?", sheet).Count(&count).Error; err != nil {
			return err
		}
		model := RowModel{
			Sheet:     sheet,
			Position:  int(count),
			RecordID:  firstCell(row),
			Cells:     datatypes.JSON(cells),
			UpdatedAt: time.Now().UTC(),
		}
		return tx.Create(&model).Error
	})
}

// OverwriteRow replaces the row at pos when it still holds expectID.
func (g *GormGrid) OverwriteRow(ctx context.Context, sheet string, pos int, expectID string, row []any) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedRow(tx, sheet, pos, expectID)
		if err != nil {
			return err
		}
		return tx.Model(&RowModel{}).Where("id = ?", current.ID).Updates(map[string]any{
			"cells":      datatypes.JSON(cells),
			"record_id":  firstCell(row),
			"updated_at": time.Now().UTC(),
		}).Error
	})
}

// DeleteRow removes the row at pos and shifts later rows up.
func (g *GormGrid) DeleteRow(ctx context.Context, sheet string, pos int, expectID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedRow(tx, sheet, pos, expectID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&RowModel{}, "id = ?", current.ID).Error; err != nil {
			return err
		}
		return tx.Model(&RowModel{}).
			Where("sheet = ? AND position > ?", sheet, pos).
			Update("position", gorm.Expr("position - 1")).Error
	})
}

func sheetExists(db *gorm.DB, sheet string) error {
	var count int64
	if err := db.Model(&SheetModel{}).Where("name = ?", sheet).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	return nil
}

func lockSheet(tx *gorm.DB, sheet string) error {
	var model SheetModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "name = ?", sheet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	return err
}

func lockedRow(tx *gorm.DB, sheet string, pos int, expectID string) (RowModel, error) {
	if err := lockSheet(tx, sheet); err != nil {
		return RowModel{}, err
	}
	var current RowModel
	err := tx.Where("sheet = ? AND position = ?", sheet, pos).First(&current).Error
	return expectRow(current, err, expectID)
}

// expectRow maps a positional lookup onto ErrRowMoved when the position is
// empty or now holds another record.
func expectRow(current RowModel, err error, expectID string) (RowModel, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RowModel{}, ErrRowMoved
	}
	if err != nil {
		return RowModel{}, err
	}
	if current.RecordID != expectID {
		return RowModel{}, ErrRowMoved
	}
	return current, nil
}

func firstCell(row []any) string {
	if len(row) == 0 {
		return ""
	}
	s, _ := row[0].(string)
	return s
}
