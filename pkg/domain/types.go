package domain

// Sheet names, one per entity table.
const (
	SheetCities        = "Ciudades"
	SheetBuildings     = "Edificios"
	SheetFloors        = "Pisos"
	SheetRooms         = "Habitaciones"
	SheetTenants       = "Inquilinos"
	SheetPayments      = "Pagos"
	SheetExpenses      = "Gastos"
	SheetFixedExpenses = "GastosFijos"
)

type RoomStatus string

const (
	RoomVacant      RoomStatus = "vacant"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

type RoomSide string

const (
	SideLeft   RoomSide = "izquierda"
	SideRight  RoomSide = "derecha"
	SideCenter RoomSide = "centro"
	SideSingle RoomSide = "unica"
)

type TenantStatus string

const (
	TenantActive   TenantStatus = "activo"
	TenantInactive TenantStatus = "inactivo"
)

type PaymentConcept string

const (
	ConceptRent      PaymentConcept = "alquiler"
	ConceptInternet  PaymentConcept = "internet"
	ConceptUtilities PaymentConcept = "servicios"
	ConceptOther     PaymentConcept = "otro"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "efectivo"
	MethodYape     PaymentMethod = "yape"
	MethodPlin     PaymentMethod = "plin"
	MethodTransfer PaymentMethod = "transferencia"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "pagado"
	PaymentPending PaymentStatus = "pendiente"
	PaymentVoided  PaymentStatus = "anulado"
)

type ExpenseCategory string

const (
	CategoryMaintenance ExpenseCategory = "mantenimiento"
	CategoryUtilities   ExpenseCategory = "servicios"
	CategoryCleaning    ExpenseCategory = "limpieza"
	CategoryRepair      ExpenseCategory = "reparacion"
	CategoryOther       ExpenseCategory = "otros"
)

// ExpenseCategories lists the category buckets in report order.
var ExpenseCategories = []ExpenseCategory{
	CategoryMaintenance,
	CategoryUtilities,
	CategoryCleaning,
	CategoryRepair,
	CategoryOther,
}

type FixedExpenseKind string

const (
	FixedWater    FixedExpenseKind = "agua"
	FixedPower    FixedExpenseKind = "luz"
	FixedInternet FixedExpenseKind = "internet"
	FixedGas      FixedExpenseKind = "gas"
	FixedCleaning FixedExpenseKind = "limpieza"
	FixedSecurity FixedExpenseKind = "vigilancia"
	FixedOther    FixedExpenseKind = "otro"
)

// PaymentSummary totals the payments of one month.
type PaymentSummary struct {
	TotalCollected float64 `json:"totalRecaudado"`
	TotalPayments  int     `json:"totalPagos"`
	RoomsPaid      int     `json:"habitacionesPagadas"`
	RoomsPending   int     `json:"habitacionesPendientes"`
}

// DashboardStats is the landing-page snapshot for one month.
type DashboardStats struct {
	TotalCities    int     `json:"totalCiudades"`
	TotalBuildings int     `json:"totalEdificios"`
	TotalRooms     int     `json:"totalHabitaciones"`
	RoomsOccupied  int     `json:"habitacionesOcupadas"`
	RoomsVacant    int     `json:"habitacionesVacantes"`
	OccupancyRate  float64 `json:"tasaOcupacion"`
	IncomeMonth    float64 `json:"ingresosMes"`
	ExpensesMonth  float64 `json:"gastosMes"`
	Balance        float64 `json:"balance"`
	RoomsPaid      int     `json:"habitacionesPagadas"`
	RoomsPending   int     `json:"habitacionesPendientes"`
}

// IncomeBreakdown splits a month's payments by concept.
type IncomeBreakdown struct {
	Rent      float64 `json:"alquiler"`
	Internet  float64 `json:"internet"`
	Utilities float64 `json:"servicios"`
	Other     float64 `json:"otros"`
}

// MonthlyReport is the income/expense statement of one month.
type MonthlyReport struct {
	Month          int                `json:"mes"`
	Year           int                `json:"anio"`
	Income         float64            `json:"ingresos"`
	Expenses       float64            `json:"gastos"`
	Balance        float64            `json:"balance"`
	PaymentsCount  int                `json:"pagosRegistrados"`
	IncomeDetail   IncomeBreakdown    `json:"detalleIngresos"`
	ExpensesDetail map[string]float64 `json:"detalleGastos"`
}

// MonthBalance is one point of the income/expense history.
type MonthBalance struct {
	Month    int     `json:"mes"`
	Year     int     `json:"anio"`
	Income   float64 `json:"ingresos"`
	Expenses float64 `json:"gastos"`
	Balance  float64 `json:"balance"`
}

// TenantStatement is what a tenant sees when checking their room's month.
type TenantStatement struct {
	Tenant *StatementTenant `json:"inquilino"`
	Room   StatementRoom    `json:"habitacion"`
	Paid   StatementPaid    `json:"pagos"`
	Month  int              `json:"mesActual"`
	Year   int              `json:"anioActual"`
}

type StatementTenant struct {
	Name      string `json:"nombre"`
	Surname   string `json:"apellido"`
	Phone     string `json:"telefono"`
	MoveInISO string `json:"fechaIngreso"`
}

type StatementRoom struct {
	ID             string  `json:"id"`
	Code           string  `json:"codigo"`
	RentAmount     float64 `json:"montoAlquiler"`
	InternetAmount float64 `json:"montoInternet"`
}

type StatementPaid struct {
	RentPaid       bool   `json:"alquilerPagado"`
	InternetPaid   bool   `json:"internetPagado"`
	RentPaidAt     string `json:"fechaPagoAlquiler,omitempty"`
	InternetPaidAt string `json:"fechaPagoInternet,omitempty"`
}
