package rental

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

// Expenses is the Gastos sheet.
type Expenses struct {
	*store.Table
	now func() time.Time
}

// Create records an expense; fecha defaults to now.
func (e *Expenses) Create(ctx context.Context, data store.Record) (store.Record, error) {
	rec := data.Clone()
	if blank(rec, "fecha") {
		rec["fecha"] = store.FormatDate(e.now())
	}
	return e.Table.Create(ctx, rec)
}

func (e *Expenses) ByBuilding(ctx context.Context, buildingID string) ([]store.Record, error) {
	return e.GetByField(ctx, "edificioId", buildingID)
}

// ByMonth returns expenses whose fecha falls in month/year (UTC). A non-empty
// buildingID narrows the result to that building. Rows with an unreadable
// fecha never match.
func (e *Expenses) ByMonth(ctx context.Context, month, year int, buildingID string) ([]store.Record, error) {
	all, err := e.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.Record, 0, len(all))
	for _, rec := range all {
		if buildingID != "" && rec.String("edificioId") != buildingID {
			continue
		}
		at, err := store.ParseDate(rec.String("fecha"))
		if err != nil {
			continue
		}
		if int(at.Month()) == month && at.Year() == year {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CategorySummary totals the month's expenses per category bucket. Every
// bucket is present; missing or unknown categories count as otros.
func (e *Expenses) CategorySummary(ctx context.Context, month, year int, buildingID string) (map[string]float64, error) {
	recs, err := e.ByMonth(ctx, month, year, buildingID)
	if err != nil {
		return nil, err
	}
	return categoryTotals(recs), nil
}

func categoryTotals(recs []store.Record) map[string]float64 {
	sums := make(map[domain.ExpenseCategory]decimal.Decimal, len(domain.ExpenseCategories))
	for _, cat := range domain.ExpenseCategories {
		sums[cat] = decimal.Zero
	}
	for _, rec := range recs {
		cat := domain.ExpenseCategory(rec.String("categoria"))
		if _, known := sums[cat]; !known {
			cat = domain.CategoryOther
		}
		sums[cat] = sums[cat].Add(amount(rec))
	}
	out := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		out[string(cat)] = money(sum)
	}
	return out
}
