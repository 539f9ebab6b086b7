package app

import (
	"context"
	"fmt"
	"strings"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

// Resource names as they appear in URLs and in the exec tunnel.
const (
	ResourceCities        = "ciudades"
	ResourceBuildings     = "edificios"
	ResourceFloors        = "pisos"
	ResourceRooms         = "habitaciones"
	ResourceTenants       = "inquilinos"
	ResourcePayments      = "pagos"
	ResourceExpenses      = "gastos"
	ResourceFixedExpenses = "gastos-fijos"
)

// Resources lists every CRUD resource.
var Resources = []string{
	ResourceCities,
	ResourceBuildings,
	ResourceFloors,
	ResourceRooms,
	ResourceTenants,
	ResourcePayments,
	ResourceExpenses,
	ResourceFixedExpenses,
}

// ListFilter narrows a list call. Zero values mean "no filter"; Month and
// Year apply only when both are set.
type ListFilter struct {
	CityID     string
	BuildingID string
	FloorID    string
	RoomID     string
	Status     string
	ActiveOnly bool
	Month      int
	Year       int
}

func normalizeResource(resource string) string {
	return strings.ToLower(strings.TrimSpace(resource))
}

func (a *App) table(resource string) (*store.Table, error) {
	r := a.repos
	switch normalizeResource(resource) {
	case ResourceCities:
		return r.Cities.Table, nil
	case ResourceBuildings:
		return r.Buildings.Table, nil
	case ResourceFloors:
		return r.Floors.Table, nil
	case ResourceRooms:
		return r.Rooms.Table, nil
	case ResourceTenants:
		return r.Tenants.Table, nil
	case ResourcePayments:
		return r.Payments.Table, nil
	case ResourceExpenses:
		return r.Expenses.Table, nil
	case ResourceFixedExpenses:
		return r.FixedExpenses.Table, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
}

// List returns the records of a resource narrowed by f.
func (a *App) List(ctx context.Context, resource string, f ListFilter) ([]store.Record, error) {
	resource = normalizeResource(resource)
	if _, err := a.table(resource); err != nil {
		return nil, err
	}
	r := a.repos
	var (
		recs []store.Record
		err  error
	)
	switch resource {
	case ResourceCities:
		recs, err = pick(f.ActiveOnly, r.Cities.Active, r.Cities.GetAll)(ctx)
	case ResourceBuildings:
		if f.CityID != "" {
			recs, err = r.Buildings.ByCity(ctx, f.CityID)
		} else {
			recs, err = pick(f.ActiveOnly, r.Buildings.Active, r.Buildings.GetAll)(ctx)
		}
	case ResourceFloors:
		if f.BuildingID != "" {
			recs, err = r.Floors.ByBuilding(ctx, f.BuildingID)
		} else {
			recs, err = r.Floors.GetAll(ctx)
		}
	case ResourceRooms:
		switch {
		case f.FloorID != "":
			recs, err = r.Rooms.ByFloor(ctx, f.FloorID)
		case f.Status != "":
			recs, err = r.Rooms.ByStatus(ctx, domain.RoomStatus(f.Status))
		default:
			recs, err = r.Rooms.GetAll(ctx)
		}
	case ResourceTenants:
		switch {
		case f.RoomID != "":
			recs, err = r.Tenants.ByRoom(ctx, f.RoomID)
		case f.ActiveOnly:
			recs, err = r.Tenants.Active(ctx)
		default:
			recs, err = r.Tenants.GetAll(ctx)
		}
	case ResourcePayments:
		switch {
		case f.RoomID != "":
			recs, err = r.Payments.ByRoom(ctx, f.RoomID, f.Month, f.Year)
		case f.Month != 0 && f.Year != 0:
			recs, err = r.Payments.ByMonth(ctx, f.Month, f.Year)
		default:
			recs, err = r.Payments.GetAll(ctx)
		}
	case ResourceExpenses:
		switch {
		case f.Month != 0 && f.Year != 0:
			recs, err = r.Expenses.ByMonth(ctx, f.Month, f.Year, f.BuildingID)
		case f.BuildingID != "":
			recs, err = r.Expenses.ByBuilding(ctx, f.BuildingID)
		default:
			recs, err = r.Expenses.GetAll(ctx)
		}
	case ResourceFixedExpenses:
		switch {
		case f.BuildingID != "":
			recs, err = r.FixedExpenses.ByBuilding(ctx, f.BuildingID)
		case f.ActiveOnly:
			recs, err = r.FixedExpenses.Active(ctx)
		default:
			recs, err = r.FixedExpenses.GetAll(ctx)
		}
	}
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return recs, nil
}

func pick(active bool, onlyActive, all func(context.Context) ([]store.Record, error)) func(context.Context) ([]store.Record, error) {
	if active {
		return onlyActive
	}
	return all
}

// Get returns one record or ErrNotFound.
func (a *App) Get(ctx context.Context, resource, id string) (store.Record, error) {
	t, err := a.table(resource)
	if err != nil {
		return nil, err
	}
	rec, ok, err := t.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
	}
	return rec, nil
}

// Create inserts a record. Tenants are checked in to their room, payments
// and expenses get their date and status defaults.
func (a *App) Create(ctx context.Context, resource string, data store.Record) (store.Record, error) {
	resource = normalizeResource(resource)
	t, err := a.table(resource)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = store.Record{}
	}
	var rec store.Record
	switch resource {
	case ResourceTenants:
		rec, err = a.repos.Occupancy.CheckIn(ctx, data)
	case ResourcePayments:
		rec, err = a.repos.Payments.Create(ctx, data)
	case ResourceExpenses:
		rec, err = a.repos.Expenses.Create(ctx, data)
	default:
		rec, err = t.Create(ctx, data)
	}
	return rec, classify(err)
}

// Update merges patch into the record. The id field of patch is ignored.
// Tenant and room patches keep occupancy consistent: a tenant cannot be
// moved into or reactivated in an occupied room, and an occupied room
// cannot be marked vacant.
func (a *App) Update(ctx context.Context, resource, id string, patch store.Record) (store.Record, error) {
	resource = normalizeResource(resource)
	t, err := a.table(resource)
	if err != nil {
		return nil, err
	}
	if patch == nil {
		patch = store.Record{}
	}
	var (
		rec store.Record
		ok  bool
	)
	switch resource {
	case ResourceTenants:
		rec, ok, err = a.repos.Occupancy.Update(ctx, id, patch)
	case ResourceRooms:
		rec, ok, err = a.repos.Occupancy.UpdateRoom(ctx, id, patch)
	default:
		rec, ok, err = t.Update(ctx, id, patch)
	}
	if err != nil {
		return nil, classify(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
	}
	return rec, nil
}

// Delete removes a record. Deleting a tenant frees their room.
func (a *App) Delete(ctx context.Context, resource, id string) error {
	resource = normalizeResource(resource)
	t, err := a.table(resource)
	if err != nil {
		return err
	}
	var ok bool
	if resource == ResourceTenants {
		ok, err = a.repos.Occupancy.Remove(ctx, id)
	} else {
		ok, err = t.Delete(ctx, id)
	}
	if err != nil {
		return classify(err)
	}
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
	}
	return nil
}
