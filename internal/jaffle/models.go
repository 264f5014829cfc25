package jaffle

import (
	"github.com/leapstack-labs/strata/pkg/fql"
	"github.com/leapstack-labs/strata/pkg/model"
)

// StgOrders renames raw order columns to their modeled names.
type StgOrders struct {
	model.Base
}

func (*StgOrders) Name() string { return "stg_orders" }

func (*StgOrders) Query(_ *model.Context, _ model.Deps) (*fql.Query, error) {
	return fql.From("raw_orders").Select(
		fql.Col("id").As("order_id"),
		fql.Col("user_id").As("customer_id"),
		fql.Col("order_date"),
		fql.Col("status"),
	), nil
}

// StgCustomers renames raw customer columns to their modeled names.
type StgCustomers struct {
	model.Base
}

func (*StgCustomers) Name() string { return "stg_customers" }

func (*StgCustomers) Query(_ *model.Context, _ model.Deps) (*fql.Query, error) {
	return fql.From("raw_customers").Select(
		fql.Col("id").As("customer_id"),
		fql.Col("first_name"),
		fql.Col("last_name"),
	), nil
}

// StgPayments renames raw payment columns and converts amounts from
// cents to currency units.
type StgPayments struct {
	model.Base
}

func (*StgPayments) Name() string { return "stg_payments" }

func (*StgPayments) Query(_ *model.Context, _ model.Deps) (*fql.Query, error) {
	return fql.From("raw_payments").
		Select(
			fql.Col("id").As("payment_id"),
			fql.Col("order_id"),
			fql.Col("payment_method"),
			fql.Col("amount"),
		).
		Define(fql.Div(fql.Col("amount"), fql.Lit(100)).As("amount")), nil
}

// CustomerOrders aggregates order history per customer.
type CustomerOrders struct {
	model.Base
	Orders *StgOrders
}

func (*CustomerOrders) Name() string { return "customer_orders" }

func (m *CustomerOrders) Parents() []model.Slot {
	return []model.Slot{{Name: "orders", Parent: m.Orders}}
}

func (m *CustomerOrders) Query(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
	orders, err := deps.Query("orders", ctx)
	if err != nil {
		return nil, err
	}
	return orders.Group(fql.Col("customer_id")).Select(
		fql.Col("customer_id"),
		fql.Min(fql.Col("order_date")).As("first_order"),
		fql.Max(fql.Col("order_date")).As("most_recent_order"),
		fql.Count(fql.Col("order_id")).As("number_of_orders"),
	), nil
}

// CustomerPayments totals payments per customer. Only paid orders
// contribute, so the join is inner.
type CustomerPayments struct {
	model.Base
	Orders   *StgOrders
	Payments *StgPayments
}

func (*CustomerPayments) Name() string { return "customer_payments" }

func (*CustomerPayments) Persist() bool { return true }

func (m *CustomerPayments) Parents() []model.Slot {
	return []model.Slot{
		{Name: "orders", Parent: m.Orders},
		{Name: "payments", Parent: m.Payments},
	}
}

func (m *CustomerPayments) Query(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
	orders, err := deps.Query("orders", ctx)
	if err != nil {
		return nil, err
	}
	payments, err := deps.Query("payments", ctx)
	if err != nil {
		return nil, err
	}
	return orders.
		Join(payments.As("payments"), fql.Eq(fql.Col("order_id"), fql.Col("payments.order_id"))).
		Group(fql.Col("customer_id")).
		Select(
			fql.Col("customer_id"),
			fql.Sum(fql.Col("payments.amount")).As("total_amount"),
		), nil
}

// joinOnKey left-joins two pipelines that share a key column, giving
// the right side an alias so shared column names stay unambiguous.
func joinOnKey(left, right *fql.Query, alias, key string) *fql.Query {
	return left.LeftJoin(right.As(alias), fql.Eq(fql.Col(key), fql.Col(alias+"."+key)))
}

// CustomerFinal joins every per-customer aggregate onto the customer
// list. Customers without orders keep their row with null history.
type CustomerFinal struct {
	model.Base
	Customers *StgCustomers
	Orders    *CustomerOrders
	Payments  *CustomerPayments
}

func (*CustomerFinal) Name() string { return "customer_final" }

func (*CustomerFinal) Persist() bool { return true }

func (m *CustomerFinal) Parents() []model.Slot {
	return []model.Slot{
		{Name: "customers", Parent: m.Customers},
		{Name: "orders", Parent: m.Orders},
		{Name: "payments", Parent: m.Payments},
	}
}

func (m *CustomerFinal) Query(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
	customers, err := deps.Query("customers", ctx)
	if err != nil {
		return nil, err
	}
	orders, err := deps.Query("orders", ctx)
	if err != nil {
		return nil, err
	}
	payments, err := deps.Query("payments", ctx)
	if err != nil {
		return nil, err
	}

	full := joinOnKey(customers, orders, "orders", "customer_id")
	full = joinOnKey(full, payments, "payments", "customer_id")

	return full.Select(
		fql.Col("customer_id"),
		fql.Col("first_name"),
		fql.Col("last_name"),
		fql.Col("orders.first_order"),
		fql.Col("orders.most_recent_order"),
		fql.Col("orders.number_of_orders"),
		fql.Col("payments.total_amount").As("customer_lifetime_value"),
	), nil
}

// OrderPayments pivots payments per order into one column per payment
// method, driven by the payment_methods run variable.
type OrderPayments struct {
	model.Base
	Payments *StgPayments
}

func (*OrderPayments) Name() string { return "order_payments" }

func (*OrderPayments) Persist() bool { return true }

func (m *OrderPayments) Parents() []model.Slot {
	return []model.Slot{{Name: "payments", Parent: m.Payments}}
}

func (m *OrderPayments) Query(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
	methods, err := ctx.StringList("payment_methods")
	if err != nil {
		return nil, err
	}
	payments, err := deps.Query("payments", ctx)
	if err != nil {
		return nil, err
	}

	items := []fql.Expr{fql.Col("order_id")}
	for _, method := range methods {
		items = append(items, fql.Sum(fql.When(
			fql.Eq(fql.Col("payment_method"), fql.Lit(method)),
			fql.Col("amount"),
			fql.Lit(0),
		)).As(method+"_amount"))
	}
	items = append(items, fql.Sum(fql.Col("amount")).As("total_amount"))

	return payments.Group(fql.Col("order_id")).Select(items...), nil
}

// OrdersFinal carries every order with its per-method payment columns.
// Unpaid orders keep their row with null amounts.
type OrdersFinal struct {
	model.Base
	Orders   *StgOrders
	Payments *OrderPayments
}

func (*OrdersFinal) Name() string { return "orders_final" }

func (*OrdersFinal) Persist() bool { return true }

func (m *OrdersFinal) Parents() []model.Slot {
	return []model.Slot{
		{Name: "orders", Parent: m.Orders},
		{Name: "payments", Parent: m.Payments},
	}
}

func (m *OrdersFinal) Query(ctx *model.Context, deps model.Deps) (*fql.Query, error) {
	methods, err := ctx.StringList("payment_methods")
	if err != nil {
		return nil, err
	}
	orders, err := deps.Query("orders", ctx)
	if err != nil {
		return nil, err
	}
	payments, err := deps.Query("payments", ctx)
	if err != nil {
		return nil, err
	}

	items := []fql.Expr{
		fql.Col("order_id"),
		fql.Col("customer_id"),
		fql.Col("order_date"),
		fql.Col("status"),
	}
	for _, method := range methods {
		items = append(items, fql.Col("payments."+method+"_amount"))
	}
	items = append(items, fql.Col("payments.total_amount").As("amount"))

	return joinOnKey(orders, payments, "payments", "order_id").Select(items...), nil
}
