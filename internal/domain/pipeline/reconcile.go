package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Join key columns on the prefixed accumulated tables. The order side comes
// from the embedded customer object flattened into the order record.
const (
	CustomerJoinColumn = "customers_id"
	OrderJoinColumn    = "orders_customer_id"
)

// Prefixes applied to the accumulated tables before the join.
const (
	CustomerPrefix = "customers" + Separator
	OrderPrefix    = "orders" + Separator
)

// DefaultCombinedColumns is the projection applied to the joined table:
// order scalars, expansion fields, shipping/billing address fields, refund
// fields, then customer fields. Every listed column must be present after
// accumulation or the run aborts.
var DefaultCombinedColumns = []string{
	"orders_id",
	"orders_name",
	"orders_created_at",
	"orders_currency",
	"orders_total_price",
	"orders_subtotal_price",
	"orders_total_discounts",
	"orders_financial_status",
	"orders_customer_id",
	"orders_shop_name",
	"orders_item_type",
	"orders_item_id",
	"orders_item_title",
	"orders_item_quantity",
	"orders_item_price",
	"orders_fulfillment_id",
	"orders_fulfillment_status",
	"orders_shipping_address_city",
	"orders_shipping_address_country",
	"orders_shipping_address_zip",
	"orders_billing_address_city",
	"orders_billing_address_country",
	"orders_billing_address_zip",
	"orders_refund_count",
	"orders_refund_id",
	"orders_refund_created_at",
	"customers_id",
	"customers_email",
	"customers_first_name",
	"customers_last_name",
	"customers_orders_count",
	"customers_total_spent",
	"customers_created_at",
	"customers_default_address_city",
	"customers_default_address_country",
	"customers_default_address_zip",
	"customers_shop_name",
}

// Reconcile left-joins the accumulated (prefixed) orders table onto the
// accumulated customers table and projects the result down to columns. The
// orders table drives the join: every order row appears exactly once in the
// result, with nil customer cells when no customer matches. Join keys are
// compared in canonical string form to sidestep numeric-type mismatches
// between the two sides.
//
// A missing join key column or a missing projection column is a schema error
// (ErrJoinKeyMissing / ErrCombinedColumnMissing).
func Reconcile(customers, orders *Table, columns []string) (*Table, error) {
	if !orders.HasColumn(OrderJoinColumn) {
		return nil, fmt.Errorf("%w: %s on orders table", ErrJoinKeyMissing, OrderJoinColumn)
	}
	if !customers.HasColumn(CustomerJoinColumn) {
		return nil, fmt.Errorf("%w: %s on customers table", ErrJoinKeyMissing, CustomerJoinColumn)
	}
	for _, col := range columns {
		if !orders.HasColumn(col) && !customers.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s", ErrCombinedColumnMissing, col)
		}
	}

	// First customer row per key wins; accumulation order is deterministic,
	// so so is the join.
	byKey := make(map[string]Record, customers.Len())
	for i := 0; i < customers.Len(); i++ {
		key := canonicalKey(customers.Cell(i, CustomerJoinColumn))
		if key == "" {
			continue
		}
		if _, ok := byKey[key]; !ok {
			byKey[key] = customers.Row(i)
		}
	}

	combined := NewTableWithColumns(columns)
	for i := 0; i < orders.Len(); i++ {
		orderRow := orders.Row(i)
		customerRow := byKey[canonicalKey(orderRow[OrderJoinColumn])]

		projected := make(Record, len(columns))
		for _, col := range columns {
			if v, ok := orderRow[col]; ok {
				projected[col] = v
			} else if v, ok := customerRow[col]; ok {
				projected[col] = v
			}
		}
		combined.Append(projected)
	}
	return combined, nil
}

// canonicalKey renders a join key value in a comparable string form. Nil (and
// anything unrenderable) yields "", which never matches.
func canonicalKey(v any) string {
	switch key := v.(type) {
	case nil:
		return ""
	case string:
		return key
	case json.Number:
		return key.String()
	case int:
		return strconv.Itoa(key)
	case int64:
		return strconv.FormatInt(key, 10)
	case float64:
		return strconv.FormatFloat(key, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(key)
	default:
		return fmt.Sprint(key)
	}
}
