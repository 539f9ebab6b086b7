package rental

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var exportHeader = []string{"tipo", "id", "fecha", "habitacionId", "edificioId", "concepto", "categoria", "estado", "monto"}

// WriteMonthlyCSV writes the payments and expenses of month/year as CSV,
// payments first, then expenses, then the totals.
func (r *Repos) WriteMonthlyCSV(ctx context.Context, w io.Writer, month, year int) error {
	pays, expenses, err := r.monthRecords(ctx, month, year)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range pays {
		row := []string{
			"pago", p.ID(), p.String("fecha"), p.String("habitacionId"), "",
			p.String("concepto"), "", p.String("estado"), amount(p).StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, e := range expenses {
		row := []string{
			"gasto", e.ID(), e.String("fecha"), e.String("habitacionId"), e.String("edificioId"),
			e.String("concepto"), e.String("categoria"), "", amount(e).StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	totals := [][]string{
		{"total_ingresos", "", "", "", "", "", "", "pagado", sumAmounts(pays, isPaid).StringFixed(2)},
		{"total_gastos", "", "", "", "", "", "", "", sumAmounts(expenses, nil).StringFixed(2)},
		{"registros", "", "", "", "", "", "", "", strconv.Itoa(len(pays) + len(expenses))},
	}
	if err := cw.WriteAll(totals); err != nil {
		return fmt.Errorf("write csv totals: %w", err)
	}
	return nil
}
