package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

// Occupancy moves tenants in and out of rooms, keeping the tenant's estado
// and the room's estado in step. Calls are serialized so two check-ins for
// the same room cannot both pass the vacancy check.
type Occupancy struct {
	mu      sync.Mutex
	rooms   *Rooms
	tenants *Tenants
	now     func() time.Time
}

// CheckIn creates an active tenant for data["habitacionId"] and marks the
// room occupied. fechaIngreso defaults to now. It fails with ErrRoomNotFound
// or ErrRoomOccupied without writing anything.
func (o *Occupancy) CheckIn(ctx context.Context, data store.Record) (store.Record, error) {
	roomID := strings.TrimSpace(data.String("habitacionId"))
	if roomID == "" {
		return nil, fmt.Errorf("%w: habitacionId is required", ErrInvalidField)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok, err := o.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if _, busy, err := o.tenants.ActiveForRoom(ctx, roomID); err != nil {
		return nil, err
	} else if busy {
		return nil, fmt.Errorf("%w: %s", ErrRoomOccupied, roomID)
	}

	rec := data.Clone()
	rec["habitacionId"] = roomID
	rec["estado"] = string(domain.TenantActive)
	if blank(rec, "fechaIngreso") {
		rec["fechaIngreso"] = store.FormatDate(o.now())
	}
	tenant, err := o.tenants.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	if _, _, err := o.rooms.UpdateStatus(ctx, roomID, domain.RoomOccupied); err != nil {
		// undo so the tenant does not point at a room still shown as vacant
		if _, delErr := o.tenants.Delete(ctx, tenant.ID()); delErr != nil {
			return nil, errors.Join(err, delErr)
		}
		return nil, err
	}
	return tenant, nil
}

// CheckOut deactivates the tenant and frees the room when no other active
// tenant remains in it. It reports false for unknown tenants.
func (o *Occupancy) CheckOut(ctx context.Context, tenantID string, moveOut time.Time) (store.Record, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tenant, ok, err := o.tenants.Deactivate(ctx, tenantID, moveOut)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := o.releaseRoom(ctx, tenant.String("habitacionId")); err != nil {
		return nil, false, err
	}
	return tenant, true, nil
}

// Remove deletes a tenant record, freeing the room when the tenant was the
// room's active occupant.
func (o *Occupancy) Remove(ctx context.Context, tenantID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tenant, ok, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil || !ok {
		return false, err
	}
	deleted, err := o.tenants.Delete(ctx, tenantID)
	if err != nil || !deleted {
		return deleted, err
	}
	if tenant.String("estado") == string(domain.TenantActive) {
		if err := o.releaseRoom(ctx, tenant.String("habitacionId")); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Update applies a patch to a tenant. A patch that activates the tenant or
// moves them to another room claims the target room under the same vacancy
// check as CheckIn, and the room they leave is freed. It reports false for
// unknown tenants.
func (o *Occupancy) Update(ctx context.Context, tenantID string, patch store.Record) (store.Record, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	before, ok, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil || !ok {
		return nil, ok, err
	}
	oldRoom := before.String("habitacionId")
	newRoom := oldRoom
	if _, set := patch.Get("habitacionId"); set {
		newRoom = strings.TrimSpace(patch.String("habitacionId"))
	}
	wasActive := before.String("estado") == string(domain.TenantActive)
	nowActive := wasActive
	if _, set := patch.Get("estado"); set {
		nowActive = strings.TrimSpace(patch.String("estado")) == string(domain.TenantActive)
	}
	claims := nowActive && newRoom != "" && (!wasActive || newRoom != oldRoom)

	if claims {
		if _, ok, err := o.rooms.GetByID(ctx, newRoom); err != nil {
			return nil, false, err
		} else if !ok {
			return nil, false, fmt.Errorf("%w: %s", ErrRoomNotFound, newRoom)
		}
		if busy, err := o.occupiedByOther(ctx, newRoom, tenantID); err != nil {
			return nil, false, err
		} else if busy {
			return nil, false, fmt.Errorf("%w: %s", ErrRoomOccupied, newRoom)
		}
	}

	next := patch.Clone()
	if _, set := next["habitacionId"]; set {
		next["habitacionId"] = newRoom
	}
	tenant, ok, err := o.tenants.Update(ctx, tenantID, next)
	if err != nil || !ok {
		return nil, ok, err
	}
	if claims {
		if _, _, err := o.rooms.UpdateStatus(ctx, newRoom, domain.RoomOccupied); err != nil {
			return nil, false, err
		}
	}
	if wasActive && (!nowActive || newRoom != oldRoom) {
		if err := o.releaseRoom(ctx, oldRoom); err != nil {
			return nil, false, err
		}
	}
	return tenant, true, nil
}

// UpdateRoom applies a patch to a room. Marking a room vacant fails with
// ErrRoomOccupied while it still has an active tenant.
func (o *Occupancy) UpdateRoom(ctx context.Context, roomID string, patch store.Record) (store.Record, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if strings.TrimSpace(patch.String("estado")) == string(domain.RoomVacant) {
		if _, busy, err := o.tenants.ActiveForRoom(ctx, roomID); err != nil {
			return nil, false, err
		} else if busy {
			return nil, false, fmt.Errorf("%w: %s", ErrRoomOccupied, roomID)
		}
	}
	return o.rooms.Update(ctx, roomID, patch)
}

func (o *Occupancy) occupiedByOther(ctx context.Context, roomID, tenantID string) (bool, error) {
	tenants, err := o.tenants.ByRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	for _, tenant := range tenants {
		if tenant.ID() != tenantID && tenant.String("estado") == string(domain.TenantActive) {
			return true, nil
		}
	}
	return false, nil
}

func (o *Occupancy) releaseRoom(ctx context.Context, roomID string) error {
	if roomID == "" {
		return nil
	}
	if _, busy, err := o.tenants.ActiveForRoom(ctx, roomID); err != nil || busy {
		return err
	}
	room, ok, err := o.rooms.GetByID(ctx, roomID)
	if err != nil || !ok {
		return err
	}
	if room.String("estado") != string(domain.RoomOccupied) {
		return nil
	}
	_, _, err = o.rooms.UpdateStatus(ctx, roomID, domain.RoomVacant)
	return err
}
