package rental

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

// Payments is the Pagos sheet.
type Payments struct {
	*store.Table
	now func() time.Time
}

// Create records a payment. fecha defaults to now and estado to pagado;
// mes/anio default to the month of fecha when absent. A supplied mes/anio is
// kept even when it disagrees with fecha.
func (p *Payments) Create(ctx context.Context, data store.Record) (store.Record, error) {
	rec := data.Clone()
	if blank(rec, "fecha") {
		rec["fecha"] = store.FormatDate(p.now())
	}
	if blank(rec, "estado") {
		rec["estado"] = string(domain.PaymentPaid)
	}
	if blank(rec, "mes") || blank(rec, "anio") {
		if at, err := store.ParseDate(rec.String("fecha")); err == nil {
			if blank(rec, "mes") {
				rec["mes"] = int(at.Month())
			}
			if blank(rec, "anio") {
				rec["anio"] = at.Year()
			}
		}
	}
	return p.Table.Create(ctx, rec)
}

// ByMonth returns payments whose stored mes/anio match.
func (p *Payments) ByMonth(ctx context.Context, month, year int) ([]store.Record, error) {
	all, err := p.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterMonth(all, month, year), nil
}

// ByRoom returns the room's payments, narrowed to one month when both month
// and year are non-zero.
func (p *Payments) ByRoom(ctx context.Context, roomID string, month, year int) ([]store.Record, error) {
	pays, err := p.GetByField(ctx, "habitacionId", roomID)
	if err != nil {
		return nil, err
	}
	if month == 0 || year == 0 {
		return pays, nil
	}
	return filterMonth(pays, month, year), nil
}

// Void marks a payment anulado. Voided payments stay listed but no longer
// count as collected.
func (p *Payments) Void(ctx context.Context, id string) (store.Record, bool, error) {
	return p.Update(ctx, id, store.Record{"estado": string(domain.PaymentVoided)})
}

func filterMonth(pays []store.Record, month, year int) []store.Record {
	out := make([]store.Record, 0, len(pays))
	for _, rec := range pays {
		if rec.Int("mes") == month && rec.Int("anio") == year {
			out = append(out, rec)
		}
	}
	return out
}

func isPaid(rec store.Record) bool {
	return rec.String("estado") == string(domain.PaymentPaid)
}

func hasConcept(concept domain.PaymentConcept) func(store.Record) bool {
	return func(rec store.Record) bool {
		return rec.String("concepto") == string(concept)
	}
}

// sumAmounts adds the monto of every record keep accepts.
func sumAmounts(recs []store.Record, keep func(store.Record) bool) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range recs {
		if keep != nil && !keep(rec) {
			continue
		}
		sum = sum.Add(amount(rec))
	}
	return sum
}

func amount(rec store.Record) decimal.Decimal {
	v, ok := rec.Get("monto")
	if !ok || v == nil {
		return decimal.Zero
	}
	if s, isStr := v.(string); isStr {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.NewFromFloat(rec.Float("monto"))
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func blank(rec store.Record, key string) bool {
	v, ok := rec.Get(key)
	return !ok || v == nil || v == ""
}
