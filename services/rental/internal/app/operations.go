package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"rentbook/internal/util"
	"rentbook/pkg/domain"
	"rentbook/pkg/storage"
	"rentbook/pkg/store"
)

// UpdateRoomStatus sets a room's estado. A room with an active tenant
// cannot be marked vacant.
func (a *App) UpdateRoomStatus(ctx context.Context, id string, status string) (store.Record, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, fmt.Errorf("%w: estado is required", ErrInvalidInput)
	}
	return a.Update(ctx, ResourceRooms, id, store.Record{"estado": status})
}

// RoomsWithPaymentStatus is every room joined with its tenant and this
// period's payments.
func (a *App) RoomsWithPaymentStatus(ctx context.Context, month, year int) ([]store.Record, error) {
	return a.repos.RoomsWithPaymentStatus(ctx, month, year)
}

// TenantForRoom returns the room's first active tenant, or nil when the
// room is empty.
func (a *App) TenantForRoom(ctx context.Context, roomID string) (store.Record, error) {
	rec, ok, err := a.repos.Tenants.ActiveForRoom(ctx, roomID)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// CheckOut deactivates a tenant as of moveOut (now when zero).
func (a *App) CheckOut(ctx context.Context, tenantID string, moveOut time.Time) (store.Record, error) {
	if moveOut.IsZero() {
		moveOut = a.now()
	}
	rec, ok, err := a.repos.Occupancy.CheckOut(ctx, tenantID, moveOut)
	if err != nil {
		return nil, classify(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: inquilino %s", ErrNotFound, tenantID)
	}
	util.LoggerFromContext(ctx).Info("tenant_checked_out", "tenant_id", tenantID, "room_id", rec.String("habitacionId"))
	return rec, nil
}

// VoidPayment marks a payment anulado.
func (a *App) VoidPayment(ctx context.Context, id string) (store.Record, error) {
	rec, ok, err := a.repos.Payments.Void(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: pago %s", ErrNotFound, id)
	}
	return rec, nil
}

func (a *App) PaymentSummary(ctx context.Context, month, year int) (domain.PaymentSummary, error) {
	return a.repos.PaymentSummary(ctx, month, year)
}

func (a *App) ExpenseCategorySummary(ctx context.Context, month, year int, buildingID string) (map[string]float64, error) {
	return a.repos.Expenses.CategorySummary(ctx, month, year, buildingID)
}

func (a *App) Dashboard(ctx context.Context, month, year int) (domain.DashboardStats, error) {
	return a.repos.Dashboard(ctx, month, year)
}

func (a *App) MonthlyReport(ctx context.Context, month, year int) (domain.MonthlyReport, error) {
	return a.repos.MonthlyReport(ctx, month, year)
}

// History returns n month balances ending at month/year, oldest first.
func (a *App) History(ctx context.Context, month, year, n int) ([]domain.MonthBalance, error) {
	return a.repos.History(ctx, month, year, n)
}

// Statement is the public tenant lookup.
func (a *App) Statement(ctx context.Context, roomID, tenantID string) (domain.TenantStatement, error) {
	st, ok, err := a.repos.Statement(ctx, strings.TrimSpace(roomID), strings.TrimSpace(tenantID))
	if err != nil {
		return domain.TenantStatement{}, err
	}
	if !ok {
		return domain.TenantStatement{}, fmt.Errorf("%w: habitacion", ErrNotFound)
	}
	return st, nil
}

// Export is a generated report stored in object storage.
type Export struct {
	Key     string    `json:"key"`
	URL     string    `json:"url"`
	Expires time.Time `json:"expiresAt"`
}

// ExportMonthly renders the month as CSV, uploads it and returns a
// presigned download URL.
func (a *App) ExportMonthly(ctx context.Context, month, year int) (Export, error) {
	if a.objects == nil {
		return Export{}, ErrStorageNotConfigured
	}
	var buf bytes.Buffer
	if err := a.repos.WriteMonthlyCSV(ctx, &buf, month, year); err != nil {
		return Export{}, err
	}
	key := storage.ExportKey(month, year)
	if err := a.objects.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		return Export{}, fmt.Errorf("upload export: %w", err)
	}
	url, err := a.objects.PresignGet(ctx, key, a.presignExpiry)
	if err != nil {
		return Export{}, err
	}
	return Export{Key: key, URL: url, Expires: a.now().Add(a.presignExpiry).UTC()}, nil
}

// UploadReceipt stores a receipt for the expense and records its object key
// in comprobanteUrl. A previous receipt with a different name is removed.
func (a *App) UploadReceipt(ctx context.Context, expenseID, filename string, r io.Reader, size int64) (store.Record, error) {
	if a.objects == nil {
		return nil, ErrStorageNotConfigured
	}
	expense, err := a.Get(ctx, ResourceExpenses, expenseID)
	if err != nil {
		return nil, err
	}
	key := storage.ReceiptKey(expense.ID(), filename)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.objects.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("save receipt: %w", err)
	}
	previous := expense.String("comprobanteUrl")
	rec, err := a.Update(ctx, ResourceExpenses, expenseID, store.Record{"comprobanteUrl": key})
	if err != nil {
		_ = a.objects.Delete(ctx, key)
		return nil, err
	}
	if previous != "" && previous != key {
		if err := a.objects.Delete(ctx, previous); err != nil {
			util.LoggerFromContext(ctx).Warn("receipt_cleanup_failed", "key", previous, "err", err)
		}
	}
	return rec, nil
}

// ReceiptURL presigns the expense's stored receipt.
func (a *App) ReceiptURL(ctx context.Context, expenseID string) (string, error) {
	if a.objects == nil {
		return "", ErrStorageNotConfigured
	}
	expense, err := a.Get(ctx, ResourceExpenses, expenseID)
	if err != nil {
		return "", err
	}
	key := expense.String("comprobanteUrl")
	if key == "" {
		return "", ErrNoReceipt
	}
	return a.objects.PresignGet(ctx, key, a.presignExpiry)
}
