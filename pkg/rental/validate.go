package rental

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"rentbook/pkg/store"
)

var (
	// ErrInvalidField is returned when a record carries a value outside its
	// column's allowed set.
	ErrInvalidField = errors.New("invalid field")
	// ErrRoomNotFound is returned when a tenant references a missing room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomOccupied is returned when a room already has an active tenant.
	ErrRoomOccupied = errors.New("room already has an active tenant")
)

var fieldValidate = validator.New()

// fieldRule constrains one record field. Empty and missing values pass;
// required-ness is the caller's concern.
type fieldRule struct {
	key     string
	tag     string
	numeric bool
}

func enumRule(key, tag string) fieldRule  { return fieldRule{key: key, tag: tag} }
func rangeRule(key, tag string) fieldRule { return fieldRule{key: key, tag: tag, numeric: true} }

func checkFields(rules ...fieldRule) func(store.Record) error {
	return func(rec store.Record) error {
		for _, rule := range rules {
			v, ok := rec.Get(rule.key)
			if !ok || v == nil || v == "" {
				continue
			}
			var err error
			if rule.numeric {
				n, convErr := cast.ToFloat64E(v)
				if convErr != nil {
					return fmt.Errorf("%w: %s must be a number", ErrInvalidField, rule.key)
				}
				err = fieldValidate.Var(n, rule.tag)
			} else {
				err = fieldValidate.Var(cast.ToString(v), rule.tag)
			}
			if err != nil {
				return fmt.Errorf("%w: %s=%v (%s)", ErrInvalidField, rule.key, v, rule.tag)
			}
		}
		return nil
	}
}

var (
	roomRules = checkFields(
		enumRule("estado", "oneof=vacant occupied maintenance"),
		enumRule("ubicacion", "oneof=izquierda derecha centro unica"),
		rangeRule("montoAlquiler", "gte=0"),
		rangeRule("montoInternet", "gte=0"),
		rangeRule("montoServicios", "gte=0"),
	)
	tenantRules = checkFields(
		enumRule("estado", "oneof=activo inactivo"),
		enumRule("email", "email"),
	)
	paymentRules = checkFields(
		enumRule("concepto", "oneof=alquiler internet servicios otro"),
		enumRule("metodoPago", "oneof=efectivo yape plin transferencia"),
		enumRule("estado", "oneof=pagado pendiente anulado"),
		rangeRule("mes", "gte=1,lte=12"),
		rangeRule("anio", "gte=2000,lte=2100"),
		rangeRule("monto", "gte=0"),
	)
	expenseRules = checkFields(
		enumRule("categoria", "oneof=mantenimiento servicios limpieza reparacion otros"),
		rangeRule("monto", "gte=0"),
	)
	fixedExpenseRules = checkFields(
		enumRule("tipo", "oneof=agua luz internet gas limpieza vigilancia otro"),
		rangeRule("diaVencimiento", "gte=1,lte=31"),
		rangeRule("monto", "gte=0"),
	)
)
