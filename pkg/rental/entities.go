package rental

import (
	"context"
	"time"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

// Cities is the Ciudades sheet.
type Cities struct{ *store.Table }

// Active returns cities whose activo cell is the boolean true.
func (c *Cities) Active(ctx context.Context) ([]store.Record, error) {
	return c.GetByField(ctx, "activo", true)
}

// Buildings is the Edificios sheet.
type Buildings struct{ *store.Table }

func (b *Buildings) Active(ctx context.Context) ([]store.Record, error) {
	return b.GetByField(ctx, "activo", true)
}

func (b *Buildings) ByCity(ctx context.Context, cityID string) ([]store.Record, error) {
	return b.GetByField(ctx, "ciudadId", cityID)
}

// Floors is the Pisos sheet.
type Floors struct{ *store.Table }

func (f *Floors) ByBuilding(ctx context.Context, buildingID string) ([]store.Record, error) {
	return f.GetByField(ctx, "edificioId", buildingID)
}

// Rooms is the Habitaciones sheet.
type Rooms struct{ *store.Table }

func (r *Rooms) ByFloor(ctx context.Context, floorID string) ([]store.Record, error) {
	return r.GetByField(ctx, "pisoId", floorID)
}

// ByStatus returns rooms in the given occupancy status.
func (r *Rooms) ByStatus(ctx context.Context, status domain.RoomStatus) ([]store.Record, error) {
	return r.GetByField(ctx, "estado", string(status))
}

func (r *Rooms) Occupied(ctx context.Context) ([]store.Record, error) {
	return r.ByStatus(ctx, domain.RoomOccupied)
}

func (r *Rooms) Vacant(ctx context.Context) ([]store.Record, error) {
	return r.ByStatus(ctx, domain.RoomVacant)
}

// UpdateStatus sets the room's estado. It reports false for unknown ids.
func (r *Rooms) UpdateStatus(ctx context.Context, id string, status domain.RoomStatus) (store.Record, bool, error) {
	return r.Update(ctx, id, store.Record{"estado": string(status)})
}

// Tenants is the Inquilinos sheet.
type Tenants struct{ *store.Table }

// Active returns tenants currently in residence.
func (t *Tenants) Active(ctx context.Context) ([]store.Record, error) {
	return t.GetByField(ctx, "estado", string(domain.TenantActive))
}

// ByRoom returns every tenant that ever referenced the room.
func (t *Tenants) ByRoom(ctx context.Context, roomID string) ([]store.Record, error) {
	return t.GetByField(ctx, "habitacionId", roomID)
}

// ActiveForRoom returns the room's active tenant. When several are active
// the first in storage order wins.
func (t *Tenants) ActiveForRoom(ctx context.Context, roomID string) (store.Record, bool, error) {
	tenants, err := t.ByRoom(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	rec, ok := activeTenantFor(tenants, roomID)
	return rec, ok, nil
}

// Deactivate marks the tenant inactive with the given move-out date. It does
// not touch the room; use Occupancy.CheckOut to keep both in sync.
func (t *Tenants) Deactivate(ctx context.Context, id string, moveOut time.Time) (store.Record, bool, error) {
	return t.Update(ctx, id, store.Record{
		"estado":      string(domain.TenantInactive),
		"fechaSalida": store.FormatDate(moveOut),
	})
}

func activeTenantFor(tenants []store.Record, roomID string) (store.Record, bool) {
	for _, tenant := range tenants {
		if tenant.String("habitacionId") == roomID && tenant.String("estado") == string(domain.TenantActive) {
			return tenant, true
		}
	}
	return nil, false
}

// FixedExpenses is the GastosFijos sheet of recurring building costs.
type FixedExpenses struct{ *store.Table }

func (f *FixedExpenses) ByBuilding(ctx context.Context, buildingID string) ([]store.Record, error) {
	return f.GetByField(ctx, "edificioId", buildingID)
}

func (f *FixedExpenses) Active(ctx context.Context) ([]store.Record, error) {
	return f.GetByField(ctx, "activo", true)
}
