package rental

import (
	"rentbook/pkg/domain"
	"rentbook/pkg/store"
)

func val(label string) store.Column  { return store.Col(label, store.Value) }
func date(label string) store.Column { return store.Col(label, store.Date) }

// Sheet schemas. Column order is the row layout; changing it rewrites where
// every existing cell is read from.
var (
	CitySchema = store.NewSchema(domain.SheetCities,
		val("ID"), val("Nombre"), val("Departamento"), val("Activo"),
		val("CreatedAt"), val("UpdatedAt"),
	)

	BuildingSchema = store.NewSchema(domain.SheetBuildings,
		val("ID"), val("CiudadId"), val("Nombre"), val("Direccion"), val("TotalPisos"), val("Activo"),
		val("CreatedAt"), val("UpdatedAt"),
	)

	FloorSchema = store.NewSchema(domain.SheetFloors,
		val("ID"), val("EdificioId"), val("Numero"), val("Descripcion"),
		val("CreatedAt"), val("UpdatedAt"),
	)

	RoomSchema = store.NewSchema(domain.SheetRooms,
		val("ID"), val("PisoId"), val("Codigo"), val("Ubicacion"),
		val("MontoAlquiler"), val("MontoInternet"), val("MontoServicios"),
		val("Estado"), val("Activo"), val("Observaciones"),
		val("CreatedAt"), val("UpdatedAt"),
	)

	TenantSchema = store.NewSchema(domain.SheetTenants,
		val("ID"), val("HabitacionId"), val("Nombre"), val("Apellido"), val("DNI"), val("Telefono"), val("Email"),
		date("FechaIngreso"), date("FechaSalida"), val("Estado"),
		val("ContactoEmergencia"), val("TelefonoEmergencia"), val("Observaciones"),
		val("Garantia"), val("LlaveHabitacion"), val("LlavePuertaCalle"),
		val("CreatedAt"), val("UpdatedAt"),
	)

	PaymentSchema = store.NewSchema(domain.SheetPayments,
		val("ID"), val("InquilinoId"), val("HabitacionId"), date("Fecha"), val("Mes"), val("Anio"),
		val("Concepto"), val("Monto"), val("MetodoPago"), val("Referencia"), val("Estado"), val("Observaciones"),
		val("CreatedAt"), val("UpdatedAt"),
	)

	ExpenseSchema = store.NewSchema(domain.SheetExpenses,
		val("ID"), val("EdificioId"), val("HabitacionId"), date("Fecha"), val("Concepto"), val("Categoria"),
		val("Monto"), val("ComprobanteUrl"), val("Observaciones"),
		val("CreatedAt"), val("UpdatedAt"),
	)

	FixedExpenseSchema = store.NewSchema(domain.SheetFixedExpenses,
		val("ID"), val("EdificioId"), val("Tipo"), val("Descripcion"), val("Monto"), val("DiaVencimiento"), val("Activo"),
		val("CreatedAt"), val("UpdatedAt"),
	)
)

// Schemas lists every sheet in initialization order.
func Schemas() []store.Schema {
	return []store.Schema{
		CitySchema,
		BuildingSchema,
		FloorSchema,
		RoomSchema,
		TenantSchema,
		PaymentSchema,
		ExpenseSchema,
		FixedExpenseSchema,
	}
}
