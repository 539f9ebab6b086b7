package rental

import (
	"context"
	"fmt"

	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

// SeedResult lists the ids created by Seed.
type SeedResult struct {
	CityIDs    []string
	BuildingID string
	FloorIDs   []string
	RoomIDs    []string
	TenantID   string
	PaymentID  string
}

// Seed writes a small sample data set: two cities, one building with two
// floors, an occupied and a vacant room, one tenant and this month's rent.
func (r *Repos) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	if err := r.Ensure(ctx); err != nil {
		return res, err
	}

	puno, err := r.Cities.Create(ctx, store.Record{"nombre": "Puno", "departamento": "Puno", "activo": true})
	if err != nil {
		return res, fmt.Errorf("seed city: %w", err)
	}
	juli, err := r.Cities.Create(ctx, store.Record{"nombre": "Juli", "departamento": "Puno", "activo": true})
	if err != nil {
		return res, fmt.Errorf("seed city: %w", err)
	}
	res.CityIDs = []string{puno.ID(), juli.ID()}

	building, err := r.Buildings.Create(ctx, store.Record{
		"ciudadId":   puno.ID(),
		"nombre":     "Edificio Central Puno",
		"direccion":  "Jr. Lima 123, Puno",
		"totalPisos": 3,
		"activo":     true,
	})
	if err != nil {
		return res, fmt.Errorf("seed building: %w", err)
	}
	res.BuildingID = building.ID()

	for i, desc := range []string{"Primer piso", "Segundo piso"} {
		floor, err := r.Floors.Create(ctx, store.Record{"edificioId": building.ID(), "numero": i + 1, "descripcion": desc})
		if err != nil {
			return res, fmt.Errorf("seed floor: %w", err)
		}
		res.FloorIDs = append(res.FloorIDs, floor.ID())
	}

	rooms := []store.Record{
		{"codigo": "A1", "ubicacion": string(domain.SideLeft), "estado": string(domain.RoomVacant)},
		{"codigo": "A2", "ubicacion": string(domain.SideRight), "estado": string(domain.RoomVacant)},
	}
	for _, room := range rooms {
		room["pisoId"] = res.FloorIDs[0]
		room["montoAlquiler"] = 150
		room["montoInternet"] = 20
		room["montoServicios"] = 0
		room["activo"] = true
		created, err := r.Rooms.Create(ctx, room)
		if err != nil {
			return res, fmt.Errorf("seed room: %w", err)
		}
		res.RoomIDs = append(res.RoomIDs, created.ID())
	}

	tenant, err := r.Occupancy.CheckIn(ctx, store.Record{
		"habitacionId": res.RoomIDs[0],
		"nombre":       "Juan",
		"apellido":     "Pérez",
		"dni":          "12345678",
		"telefono":     "987654321",
		"email":        "juan@email.com",
	})
	if err != nil {
		return res, fmt.Errorf("seed tenant: %w", err)
	}
	res.TenantID = tenant.ID()

	now := r.now()
	payment, err := r.Payments.Create(ctx, store.Record{
		"inquilinoId":  tenant.ID(),
		"habitacionId": res.RoomIDs[0],
		"mes":          int(now.Month()),
		"anio":         now.Year(),
		"concepto":     string(domain.ConceptRent),
		"monto":        150,
		"metodoPago":   string(domain.MethodCash),
		"estado":       string(domain.PaymentPaid),
	})
	if err != nil {
		return res, fmt.Errorf("seed payment: %w", err)
	}
	res.PaymentID = payment.ID()
	return res, nil
}
