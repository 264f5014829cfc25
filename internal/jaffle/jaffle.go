// Package jaffle bundles the demo project: the jaffle-shop pipeline
// expressed as model kinds. Three staging models rename raw seed
// columns, intermediate models aggregate orders and payments per
// customer and order, and two marts join them into the final customer
// and order tables. Four of the models persist into physical tables.
package jaffle

import (
	"github.com/leapstack-labs/strata/internal/registry"
	"github.com/leapstack-labs/strata/pkg/fql"
	"github.com/leapstack-labs/strata/pkg/model"
)

// The demo graph is wired once; kinds are stateless so the package can
// hand out the same values to every caller.
var (
	stgOrders    = &StgOrders{}
	stgCustomers = &StgCustomers{}
	stgPayments  = &StgPayments{}

	customerOrders   = &CustomerOrders{Orders: stgOrders}
	customerPayments = &CustomerPayments{Orders: stgOrders, Payments: stgPayments}
	orderPayments    = &OrderPayments{Payments: stgPayments}

	customerFinal = &CustomerFinal{
		Customers: stgCustomers,
		Orders:    customerOrders,
		Payments:  customerPayments,
	}
	ordersFinal = &OrdersFinal{Orders: stgOrders, Payments: orderPayments}
)

// Kinds returns every demo kind, staging first.
func Kinds() []model.Kind {
	return []model.Kind{
		stgOrders, stgCustomers, stgPayments,
		customerOrders, customerPayments, orderPayments,
		customerFinal, ordersFinal,
	}
}

// Roots returns the marts a full demo run starts from. Running them
// pulls in the whole graph.
func Roots() []model.Kind {
	return []model.Kind{ordersFinal, customerFinal}
}

// Register adds every demo kind to the registry.
func Register(r *registry.Registry) error {
	return r.Register(Kinds()...)
}

// Catalog describes the raw seed tables the staging models scan.
func Catalog() *fql.Catalog {
	return fql.NewCatalog(
		fql.NewTable("raw_customers", "id", "first_name", "last_name"),
		fql.NewTable("raw_orders", "id", "user_id", "order_date", "status"),
		fql.NewTable("raw_payments", "id", "order_id", "payment_method", "amount"),
	)
}

// DefaultVars returns the run variables the demo models expect.
func DefaultVars() map[string]any {
	return map[string]any{
		"payment_methods": []string{"credit_card", "coupon", "bank_transfer", "gift_card"},
	}
}
