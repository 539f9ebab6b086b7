package rental

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestRepos(t *testing.T) *Repos {
	t.Helper()
	r := New(store.NewMemoryGrid(), WithClock(func() time.Time { return testNow }))
	if err := r.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	return r
}

func mustCreate(t *testing.T, create func(context.Context, store.Record) (store.Record, error), rec store.Record) store.Record {
	t.Helper()
	out, err := create(context.Background(), rec)
	if err != nil {
		t.Fatalf("create %v: %v", rec, err)
	}
	return out
}

func TestRoomsWithPaymentStatus(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	room := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A1", "estado": "occupied", "montoAlquiler": 150})
	other := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A2", "estado": "vacant"})
	tenant := mustCreate(t, r.Tenants.Create, store.Record{
		"habitacionId": room.ID(), "nombre": "Juan", "apellido": "Pérez", "telefono": "987654321", "estado": "activo",
	})
	mustCreate(t, r.Payments.Create, store.Record{
		"inquilinoId": tenant.ID(), "habitacionId": room.ID(), "mes": 1, "anio": 2024,
		"concepto": "alquiler", "monto": 150, "estado": "pagado",
	})
	// another month must not count
	mustCreate(t, r.Payments.Create, store.Record{
		"habitacionId": room.ID(), "mes": 12, "anio": 2023, "concepto": "internet", "monto": 20, "estado": "pagado",
	})

	rooms, err := r.RoomsWithPaymentStatus(ctx, 1, 2024)
	if err != nil {
		t.Fatalf("rooms with payment status: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	got := rooms[0]
	if got.ID() != room.ID() {
		t.Fatalf("storage order not kept: %v", rooms)
	}
	if got["alquilerPagado"] != true || got["internetPagado"] != false {
		t.Fatalf("unexpected paid flags: %v", got)
	}
	if got["nombreInquilino"] != "Juan Pérez" || got["telefonoInquilino"] != "987654321" {
		t.Fatalf("unexpected tenant fields: %v", got)
	}
	if _, ok := rooms[1]["nombreInquilino"]; ok {
		t.Fatalf("vacant room %s should carry no tenant", other.ID())
	}
}

func TestPaymentSummary(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	paid := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A1", "estado": "occupied"})
	mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A2", "estado": "occupied"})
	mustCreate(t, r.Payments.Create, store.Record{
		"habitacionId": paid.ID(), "mes": 1, "anio": 2024, "concepto": "alquiler", "monto": 150, "estado": "pagado",
	})

	sum, err := r.PaymentSummary(ctx, 1, 2024)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := domain.PaymentSummary{TotalCollected: 150, TotalPayments: 1, RoomsPaid: 1, RoomsPending: 1}
	if sum != want {
		t.Fatalf("summary = %+v, want %+v", sum, want)
	}
}

func TestPaymentSummaryIgnoresVoidedAndSumsExactly(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	room := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A1", "estado": "occupied"})
	for _, monto := range []float64{0.1, 0.2} {
		mustCreate(t, r.Payments.Create, store.Record{
			"habitacionId": room.ID(), "mes": 1, "anio": 2024, "concepto": "servicios", "monto": monto,
		})
	}
	voided := mustCreate(t, r.Payments.Create, store.Record{
		"habitacionId": room.ID(), "mes": 1, "anio": 2024, "concepto": "alquiler", "monto": 150,
	})
	if _, ok, err := r.Payments.Void(ctx, voided.ID()); err != nil || !ok {
		t.Fatalf("void: ok=%v err=%v", ok, err)
	}

	sum, err := r.PaymentSummary(ctx, 1, 2024)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalCollected != 0.3 || sum.TotalPayments != 3 || sum.RoomsPaid != 0 || sum.RoomsPending != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestPaymentCreateDefaults(t *testing.T) {
	r := newTestRepos(t)
	p := mustCreate(t, r.Payments.Create, store.Record{"habitacionId": "H1", "concepto": "alquiler", "monto": 150})
	if p["estado"] != "pagado" {
		t.Fatalf("estado default = %v", p["estado"])
	}
	if p["fecha"] != store.FormatDate(testNow) {
		t.Fatalf("fecha default = %v", p["fecha"])
	}
	if p["mes"] != 1 || p["anio"] != 2024 {
		t.Fatalf("mes/anio default = %v/%v", p["mes"], p["anio"])
	}

	// caller-supplied month is kept even when it disagrees with fecha
	q := mustCreate(t, r.Payments.Create, store.Record{"habitacionId": "H1", "fecha": "2024-03-01", "mes": 2, "anio": 2024})
	if q["mes"] != 2 {
		t.Fatalf("supplied mes overwritten: %v", q["mes"])
	}
}

func TestPaymentsByRoom(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	mustCreate(t, r.Payments.Create, store.Record{"habitacionId": "H1", "mes": 1, "anio": 2024})
	mustCreate(t, r.Payments.Create, store.Record{"habitacionId": "H1", "mes": 2, "anio": 2024})
	mustCreate(t, r.Payments.Create, store.Record{"habitacionId": "H2", "mes": 1, "anio": 2024})

	all, err := r.Payments.ByRoom(ctx, "H1", 0, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("by room: %v %v", all, err)
	}
	jan, err := r.Payments.ByRoom(ctx, "H1", 1, 2024)
	if err != nil || len(jan) != 1 {
		t.Fatalf("by room and month: %v %v", jan, err)
	}
}

func TestCategorySummaryDefaultsToOtros(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	mustCreate(t, r.Expenses.Create, store.Record{"edificioId": "E1", "fecha": "2024-01-05", "concepto": "focos", "monto": 30})
	mustCreate(t, r.Expenses.Create, store.Record{"edificioId": "E1", "fecha": "2024-01-20", "categoria": "limpieza", "monto": 45.5})
	mustCreate(t, r.Expenses.Create, store.Record{"edificioId": "E2", "fecha": "2024-01-20", "categoria": "limpieza", "monto": 100})
	mustCreate(t, r.Expenses.Create, store.Record{"edificioId": "E1", "fecha": "2024-02-01", "categoria": "reparacion", "monto": 80})

	sum, err := r.Expenses.CategorySummary(ctx, 1, 2024, "E1")
	if err != nil {
		t.Fatalf("category summary: %v", err)
	}
	want := map[string]float64{"mantenimiento": 0, "servicios": 0, "limpieza": 45.5, "reparacion": 0, "otros": 30}
	if len(sum) != len(want) {
		t.Fatalf("buckets = %v", sum)
	}
	for k, v := range want {
		if sum[k] != v {
			t.Fatalf("bucket %s = %v, want %v", k, sum[k], v)
		}
	}

	all, err := r.Expenses.ByMonth(ctx, 1, 2024, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("by month without building: %d %v", len(all), err)
	}
}

func TestExpenseCreateDefaultsFecha(t *testing.T) {
	r := newTestRepos(t)
	e := mustCreate(t, r.Expenses.Create, store.Record{"edificioId": "E1", "monto": 10})
	if e["fecha"] != store.FormatDate(testNow) {
		t.Fatalf("fecha = %v", e["fecha"])
	}
}

func TestValidationRejectsUnknownEnums(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	if _, err := r.Rooms.Create(ctx, store.Record{"codigo": "A1", "estado": "ocupada"}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("room estado: %v", err)
	}
	if _, err := r.Payments.Create(ctx, store.Record{"mes": 13, "anio": 2024}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("payment mes: %v", err)
	}
	if _, err := r.FixedExpenses.Create(ctx, store.Record{"tipo": "telefono"}); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("fixed expense tipo: %v", err)
	}
	room := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A1"})
	if _, _, err := r.Rooms.UpdateStatus(ctx, room.ID(), domain.RoomStatus("demolished")); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("room status update: %v", err)
	}
	if _, _, err := r.Rooms.UpdateStatus(ctx, room.ID(), domain.RoomMaintenance); err != nil {
		t.Fatalf("valid status update: %v", err)
	}
}

func TestOccupancyCheckInAndOut(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	room := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A1", "estado": "vacant"})

	tenant, err := r.Occupancy.CheckIn(ctx, store.Record{"habitacionId": room.ID(), "nombre": "Ana"})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if tenant["estado"] != "activo" || tenant["fechaIngreso"] != store.FormatDate(testNow) {
		t.Fatalf("unexpected tenant: %v", tenant)
	}
	got, _, _ := r.Rooms.GetByID(ctx, room.ID())
	if got["estado"] != "occupied" {
		t.Fatalf("room not occupied: %v", got)
	}

	if _, err := r.Occupancy.CheckIn(ctx, store.Record{"habitacionId": room.ID(), "nombre": "Luis"}); !errors.Is(err, ErrRoomOccupied) {
		t.Fatalf("second check in: %v", err)
	}
	if _, err := r.Occupancy.CheckIn(ctx, store.Record{"habitacionId": "missing"}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("missing room: %v", err)
	}
	if active, _ := r.Tenants.Active(ctx); len(active) != 1 {
		t.Fatalf("refused check-ins were written: %v", active)
	}

	moveOut := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out, ok, err := r.Occupancy.CheckOut(ctx, tenant.ID(), moveOut)
	if err != nil || !ok {
		t.Fatalf("check out: ok=%v err=%v", ok, err)
	}
	if out["estado"] != "inactivo" || out["fechaSalida"] != store.FormatDate(moveOut) {
		t.Fatalf("unexpected tenant after check out: %v", out)
	}
	got, _, _ = r.Rooms.GetByID(ctx, room.ID())
	if got["estado"] != "vacant" {
		t.Fatalf("room not freed: %v", got)
	}
	if _, ok, err := r.Occupancy.CheckOut(ctx, "missing", moveOut); err != nil || ok {
		t.Fatalf("check out missing: ok=%v err=%v", ok, err)
	}
}

func TestOccupancyRemoveFreesRoom(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	room := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A1", "estado": "vacant"})
	tenant, err := r.Occupancy.CheckIn(ctx, store.Record{"habitacionId": room.ID()})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if ok, err := r.Occupancy.Remove(ctx, tenant.ID()); err != nil || !ok {
		t.Fatalf("remove: ok=%v err=%v", ok, err)
	}
	got, _, _ := r.Rooms.GetByID(ctx, room.ID())
	if got["estado"] != "vacant" {
		t.Fatalf("room not freed: %v", got)
	}
}

func TestActiveForRoomPicksFirstActive(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	mustCreate(t, r.Tenants.Create, store.Record{"habitacionId": "H1", "nombre": "old", "estado": "inactivo"})
	mustCreate(t, r.Tenants.Create, store.Record{"habitacionId": "H1", "nombre": "first", "estado": "activo"})
	mustCreate(t, r.Tenants.Create, store.Record{"habitacionId": "H1", "nombre": "second", "estado": "activo"})

	got, ok, err := r.Tenants.ActiveForRoom(ctx, "H1")
	if err != nil || !ok {
		t.Fatalf("active for room: ok=%v err=%v", ok, err)
	}
	if got["nombre"] != "first" {
		t.Fatalf("expected first active tenant, got %v", got)
	}
}

func TestMonthlyReportAndHistory(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	mustCreate(t, r.Payments.Create, store.Record{"mes": 1, "anio": 2024, "concepto": "alquiler", "monto": 150})
	mustCreate(t, r.Payments.Create, store.Record{"mes": 1, "anio": 2024, "concepto": "otro", "monto": 10, "estado": "pendiente"})
	mustCreate(t, r.Payments.Create, store.Record{"mes": 12, "anio": 2023, "concepto": "internet", "monto": 20})
	mustCreate(t, r.Expenses.Create, store.Record{"fecha": "2024-01-03", "categoria": "servicios", "monto": 40})

	rep, err := r.MonthlyReport(ctx, 1, 2024)
	if err != nil {
		t.Fatalf("monthly report: %v", err)
	}
	if rep.Income != 150 || rep.Expenses != 40 || rep.Balance != 110 || rep.PaymentsCount != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.IncomeDetail.Rent != 150 || rep.IncomeDetail.Other != 10 || rep.ExpensesDetail["servicios"] != 40 {
		t.Fatalf("unexpected detail: %+v", rep)
	}

	hist, err := r.History(ctx, 1, 2024, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 months, got %d", len(hist))
	}
	if hist[0].Month != 11 || hist[0].Year != 2023 || hist[2].Month != 1 || hist[2].Year != 2024 {
		t.Fatalf("history not oldest first: %+v", hist)
	}
	if hist[1].Income != 20 || hist[2].Balance != 110 {
		t.Fatalf("unexpected balances: %+v", hist)
	}
	if def, _ := r.History(ctx, 1, 2024, 0); len(def) != defaultHistoryMonths {
		t.Fatalf("default history length = %d", len(def))
	}
}

func TestStatement(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	room := mustCreate(t, r.Rooms.Create, store.Record{"codigo": "A1", "montoAlquiler": 150, "montoInternet": 20})
	tenant, err := r.Occupancy.CheckIn(ctx, store.Record{"habitacionId": room.ID(), "nombre": "Juan", "apellido": "Pérez"})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	mustCreate(t, r.Payments.Create, store.Record{
		"habitacionId": room.ID(), "concepto": "alquiler", "monto": 150, "fecha": "2024-01-02",
	})

	st, ok, err := r.Statement(ctx, "", tenant.ID())
	if err != nil || !ok {
		t.Fatalf("statement: ok=%v err=%v", ok, err)
	}
	if st.Room.Code != "A1" || st.Room.RentAmount != 150 || st.Month != 1 || st.Year != 2024 {
		t.Fatalf("unexpected statement: %+v", st)
	}
	if st.Tenant == nil || st.Tenant.Name != "Juan" {
		t.Fatalf("missing tenant: %+v", st.Tenant)
	}
	if !st.Paid.RentPaid || st.Paid.InternetPaid || st.Paid.RentPaidAt != "2024-01-02T00:00:00.000Z" {
		t.Fatalf("unexpected paid state: %+v", st.Paid)
	}

	if _, ok, err := r.Statement(ctx, "missing", ""); err != nil || ok {
		t.Fatalf("missing room: ok=%v err=%v", ok, err)
	}
	if _, ok, err := r.Statement(ctx, "", ""); err != nil || ok {
		t.Fatalf("empty lookup: ok=%v err=%v", ok, err)
	}
}

func TestSeedThenDashboard(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	res, err := r.Seed(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(res.CityIDs) != 2 || len(res.RoomIDs) != 2 || res.TenantID == "" || res.PaymentID == "" {
		t.Fatalf("unexpected seed result: %+v", res)
	}

	stats, err := r.Dashboard(ctx, 1, 2024)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	want := domain.DashboardStats{
		TotalCities: 2, TotalBuildings: 1, TotalRooms: 2,
		RoomsOccupied: 1, RoomsVacant: 1, OccupancyRate: 50,
		IncomeMonth: 150, ExpensesMonth: 0, Balance: 150,
		RoomsPaid: 1, RoomsPending: 0,
	}
	if stats != want {
		t.Fatalf("dashboard = %+v, want %+v", stats, want)
	}

	active, err := r.Cities.Active(ctx)
	if err != nil || len(active) != 2 {
		t.Fatalf("active cities: %v %v", active, err)
	}
	floors, err := r.Floors.ByBuilding(ctx, res.BuildingID)
	if err != nil || len(floors) != 2 {
		t.Fatalf("floors by building: %v %v", floors, err)
	}
	rooms, err := r.Rooms.ByFloor(ctx, res.FloorIDs[0])
	if err != nil || len(rooms) != 2 {
		t.Fatalf("rooms by floor: %v %v", rooms, err)
	}
}

func TestWriteMonthlyCSV(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)
	mustCreate(t, r.Payments.Create, store.Record{"habitacionId": "H1", "concepto": "alquiler", "monto": 150})
	mustCreate(t, r.Expenses.Create, store.Record{"edificioId": "E1", "categoria": "limpieza", "monto": 12.5})

	var buf bytes.Buffer
	if err := r.WriteMonthlyCSV(ctx, &buf, 1, 2024); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header, 2 records and 3 totals, got %d rows", len(rows))
	}
	if rows[1][0] != "pago" || rows[1][8] != "150.00" || rows[2][0] != "gasto" || rows[2][8] != "12.50" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if rows[3][8] != "150.00" || rows[4][8] != "12.50" {
		t.Fatalf("unexpected totals: %v", rows[3:])
	}
}
