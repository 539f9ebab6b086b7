package rental

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

const defaultHistoryMonths = 6

// RoomsWithPaymentStatus returns every room annotated for month/year with
// alquilerPagado, internetPagado and, when the room has an active tenant,
// nombreInquilino and telefonoInquilino.
func (r *Repos) RoomsWithPaymentStatus(ctx context.Context, month, year int) ([]store.Record, error) {
	var rooms, pays, tenants []store.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rooms, err = r.Rooms.GetAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		pays, err = r.Payments.ByMonth(gctx, month, year)
		return err
	})
	g.Go(func() (err error) {
		tenants, err = r.Tenants.GetAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]store.Record, 0, len(rooms))
	for _, room := range rooms {
		rec := room.Clone()
		id := room.ID()
		rec["alquilerPagado"] = paidFor(pays, id, domain.ConceptRent) != nil
		rec["internetPagado"] = paidFor(pays, id, domain.ConceptInternet) != nil
		if tenant, ok := activeTenantFor(tenants, id); ok {
			rec["nombreInquilino"] = tenant.String("nombre") + " " + tenant.String("apellido")
			rec["telefonoInquilino"] = tenant.String("telefono")
		}
		out = append(out, rec)
	}
	return out, nil
}

// paidFor returns the first paid payment of the room for the concept.
func paidFor(pays []store.Record, roomID string, concept domain.PaymentConcept) store.Record {
	for _, p := range pays {
		if p.String("habitacionId") == roomID && p.String("concepto") == string(concept) && isPaid(p) {
			return p
		}
	}
	return nil
}

// PaymentSummary totals month/year: the paid amount, the number of payments
// registered, and how many occupied rooms have or lack a paid rent payment.
func (r *Repos) PaymentSummary(ctx context.Context, month, year int) (domain.PaymentSummary, error) {
	var pays, occupied []store.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pays, err = r.Payments.ByMonth(gctx, month, year)
		return err
	})
	g.Go(func() (err error) {
		occupied, err = r.Rooms.Occupied(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.PaymentSummary{}, err
	}
	return summarizePayments(pays, occupied), nil
}

func summarizePayments(pays, occupied []store.Record) domain.PaymentSummary {
	rentPaid := make(map[string]struct{})
	for _, p := range pays {
		if isPaid(p) && hasConcept(domain.ConceptRent)(p) {
			rentPaid[p.String("habitacionId")] = struct{}{}
		}
	}
	paidRooms := 0
	for _, room := range occupied {
		if _, ok := rentPaid[room.ID()]; ok {
			paidRooms++
		}
	}
	return domain.PaymentSummary{
		TotalCollected: money(sumAmounts(pays, isPaid)),
		TotalPayments:  len(pays),
		RoomsPaid:      paidRooms,
		RoomsPending:   len(occupied) - paidRooms,
	}
}

// Dashboard builds the landing-page snapshot for month/year.
func (r *Repos) Dashboard(ctx context.Context, month, year int) (domain.DashboardStats, error) {
	var cities, buildings, rooms, pays, expenses []store.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cities, err = r.Cities.GetAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		buildings, err = r.Buildings.GetAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		rooms, err = r.Rooms.GetAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		pays, err = r.Payments.ByMonth(gctx, month, year)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = r.Expenses.ByMonth(gctx, month, year, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardStats{}, err
	}

	var occupied []store.Record
	vacant := 0
	for _, room := range rooms {
		switch domain.RoomStatus(room.String("estado")) {
		case domain.RoomOccupied:
			occupied = append(occupied, room)
		case domain.RoomVacant:
			vacant++
		}
	}
	summary := summarizePayments(pays, occupied)
	income := sumAmounts(pays, isPaid)
	spent := sumAmounts(expenses, nil)

	stats := domain.DashboardStats{
		TotalCities:    len(cities),
		TotalBuildings: len(buildings),
		TotalRooms:     len(rooms),
		RoomsOccupied:  len(occupied),
		RoomsVacant:    vacant,
		IncomeMonth:    money(income),
		ExpensesMonth:  money(spent),
		Balance:        money(income.Sub(spent)),
		RoomsPaid:      summary.RoomsPaid,
		RoomsPending:   summary.RoomsPending,
	}
	if len(rooms) > 0 {
		stats.OccupancyRate = float64(len(occupied)) / float64(len(rooms)) * 100
	}
	return stats, nil
}

// MonthlyReport is the income/expense statement of month/year. Income counts
// paid payments only; the per-concept detail counts every registered payment.
func (r *Repos) MonthlyReport(ctx context.Context, month, year int) (domain.MonthlyReport, error) {
	pays, expenses, err := r.monthRecords(ctx, month, year)
	if err != nil {
		return domain.MonthlyReport{}, err
	}
	income := sumAmounts(pays, isPaid)
	spent := sumAmounts(expenses, nil)
	return domain.MonthlyReport{
		Month:         month,
		Year:          year,
		Income:        money(income),
		Expenses:      money(spent),
		Balance:       money(income.Sub(spent)),
		PaymentsCount: len(pays),
		IncomeDetail: domain.IncomeBreakdown{
			Rent:      money(sumAmounts(pays, hasConcept(domain.ConceptRent))),
			Internet:  money(sumAmounts(pays, hasConcept(domain.ConceptInternet))),
			Utilities: money(sumAmounts(pays, hasConcept(domain.ConceptUtilities))),
			Other:     money(sumAmounts(pays, hasConcept(domain.ConceptOther))),
		},
		ExpensesDetail: categoryTotals(expenses),
	}, nil
}

// History returns the balance of the n months ending at month/year, oldest
// first. n <= 0 means six months.
func (r *Repos) History(ctx context.Context, month, year, n int) ([]domain.MonthBalance, error) {
	if n <= 0 {
		n = defaultHistoryMonths
	}
	end := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.MonthBalance, 0, n)
	for i := n - 1; i >= 0; i-- {
		at := end.AddDate(0, -i, 0)
		m, y := int(at.Month()), at.Year()
		pays, expenses, err := r.monthRecords(ctx, m, y)
		if err != nil {
			return nil, err
		}
		income := sumAmounts(pays, isPaid)
		spent := sumAmounts(expenses, nil)
		out = append(out, domain.MonthBalance{
			Month:    m,
			Year:     y,
			Income:   money(income),
			Expenses: money(spent),
			Balance:  money(income.Sub(spent)),
		})
	}
	return out, nil
}

func (r *Repos) monthRecords(ctx context.Context, month, year int) (pays, expenses []store.Record, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pays, err = r.Payments.ByMonth(gctx, month, year)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = r.Expenses.ByMonth(gctx, month, year, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pays, expenses, nil
}

// Statement is the tenant-facing view of the current month for a room,
// looked up by room id or, when roomID is empty, by tenant id. It reports
// false when neither resolves to a room.
func (r *Repos) Statement(ctx context.Context, roomID, tenantID string) (domain.TenantStatement, bool, error) {
	if roomID == "" && tenantID == "" {
		return domain.TenantStatement{}, false, nil
	}
	if roomID == "" {
		tenant, ok, err := r.Tenants.GetByID(ctx, tenantID)
		if err != nil || !ok {
			return domain.TenantStatement{}, false, err
		}
		roomID = tenant.String("habitacionId")
	}
	room, ok, err := r.Rooms.GetByID(ctx, roomID)
	if err != nil || !ok {
		return domain.TenantStatement{}, false, err
	}

	now := r.now()
	month, year := int(now.Month()), now.Year()
	var pays []store.Record
	var tenant store.Record
	var hasTenant bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pays, err = r.Payments.ByRoom(gctx, roomID, month, year)
		return err
	})
	g.Go(func() (err error) {
		tenant, hasTenant, err = r.Tenants.ActiveForRoom(gctx, roomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.TenantStatement{}, false, err
	}

	st := domain.TenantStatement{
		Room: domain.StatementRoom{
			ID:             room.ID(),
			Code:           room.String("codigo"),
			RentAmount:     money(decimal.NewFromFloat(room.Float("montoAlquiler"))),
			InternetAmount: money(decimal.NewFromFloat(room.Float("montoInternet"))),
		},
		Month: month,
		Year:  year,
	}
	if hasTenant {
		st.Tenant = &domain.StatementTenant{
			Name:      tenant.String("nombre"),
			Surname:   tenant.String("apellido"),
			Phone:     tenant.String("telefono"),
			MoveInISO: tenant.String("fechaIngreso"),
		}
	}
	if p := paidFor(pays, roomID, domain.ConceptRent); p != nil {
		st.Paid.RentPaid = true
		st.Paid.RentPaidAt = p.String("fecha")
	}
	if p := paidFor(pays, roomID, domain.ConceptInternet); p != nil {
		st.Paid.InternetPaid = true
		st.Paid.InternetPaidAt = p.String("fecha")
	}
	return st, true, nil
}
