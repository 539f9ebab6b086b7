// Package rental layers the rental entities over store tables: foreign-key
// lookups, active projections, month filters, joins and summaries. Every
// query re-reads the sheets it needs.
package rental

import (
	"context"
	"strings"
	"time"

	"rentbook/pkg/store"
)

// Repos holds one table per entity over a shared grid.
type Repos struct {
	Cities        *Cities
	Buildings     *Buildings
	Floors        *Floors
	Rooms         *Rooms
	Tenants       *Tenants
	Payments      *Payments
	Expenses      *Expenses
	FixedExpenses *FixedExpenses
	Occupancy     *Occupancy

	now func() time.Time
}

// Option customizes Repos.
type Option func(*options)

type options struct {
	observers []store.Observer
	now       func() time.Time
}

// WithObserver forwards committed mutations of every table to o.
func WithObserver(o store.Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observers = append(opts.observers, o)
		}
	}
}

// WithClock overrides the time source for timestamps, defaults and the
// "current month" of statements.
func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		if now != nil {
			opts.now = now
		}
	}
}

// New binds every rental table to grid.
func New(grid store.Grid, opts ...Option) *Repos {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	table := func(schema store.Schema, extra ...store.TableOption) *store.Table {
		tableOpts := []store.TableOption{store.WithClock(o.now)}
		for _, obs := range o.observers {
			tableOpts = append(tableOpts, store.WithObserver(obs))
		}
		return store.NewTable(grid, schema, append(tableOpts, extra...)...)
	}

	r := &Repos{
		Cities:        &Cities{Table: table(CitySchema)},
		Buildings:     &Buildings{Table: table(BuildingSchema)},
		Floors:        &Floors{Table: table(FloorSchema)},
		Rooms:         &Rooms{Table: table(RoomSchema, store.WithValidator(roomRules))},
		Tenants:       &Tenants{Table: table(TenantSchema, store.WithValidator(tenantRules))},
		Payments:      &Payments{Table: table(PaymentSchema, store.WithValidator(paymentRules)), now: o.now},
		Expenses:      &Expenses{Table: table(ExpenseSchema, store.WithValidator(expenseRules)), now: o.now},
		FixedExpenses: &FixedExpenses{Table: table(FixedExpenseSchema, store.WithValidator(fixedExpenseRules))},
		now:           o.now,
	}
	r.Occupancy = &Occupancy{rooms: r.Rooms, tenants: r.Tenants, now: o.now}
	return r
}

// Tables returns every entity table in initialization order.
func (r *Repos) Tables() []*store.Table {
	return []*store.Table{
		r.Cities.Table,
		r.Buildings.Table,
		r.Floors.Table,
		r.Rooms.Table,
		r.Tenants.Table,
		r.Payments.Table,
		r.Expenses.Table,
		r.FixedExpenses.Table,
	}
}

// Ensure creates every sheet that does not exist yet.
func (r *Repos) Ensure(ctx context.Context) error {
	for _, t := range r.Tables() {
		if err := t.Ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Table returns the table backing a sheet name, matched ignoring case.
func (r *Repos) Table(sheet string) (*store.Table, bool) {
	for _, t := range r.Tables() {
		if strings.EqualFold(t.Schema().Sheet, sheet) {
			return t, true
		}
	}
	return nil, false
}
