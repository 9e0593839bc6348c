package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCombinedColumns = []string{
	"orders_id",
	"orders_customer_id",
	"orders_item_type",
	"customers_id",
	"customers_email",
}

func testCustomersTable(recs ...Record) *Table {
	t := NewTable()
	t.AppendAll(recs)
	return t.Prefixed(CustomerPrefix)
}

func testOrdersTable(recs ...Record) *Table {
	t := NewTable()
	t.AppendAll(recs)
	return t.Prefixed(OrderPrefix)
}

func TestReconcile_LeftJoinPreservesOrderCardinality(t *testing.T) {
	customers := testCustomersTable(
		Record{"id": json.Number("1"), "email": "a@b.cz"},
	)
	orders := testOrdersTable(
		Record{"id": "O1", "customer_id": json.Number("1"), "item_type": "order"},
		Record{"id": "O2", "customer_id": json.Number("1"), "item_type": "order"},
		Record{"id": "O3", "customer_id": json.Number("99"), "item_type": "order"},
	)

	combined, err := Reconcile(customers, orders, testCombinedColumns)
	require.NoError(t, err)

	require.Equal(t, 3, combined.Len())
	assert.Equal(t, "a@b.cz", combined.Cell(0, "customers_email"))
	assert.Equal(t, "a@b.cz", combined.Cell(1, "customers_email"))
	// Unmatched order keeps nil customer cells.
	assert.Nil(t, combined.Cell(2, "customers_email"))
	assert.Nil(t, combined.Cell(2, "customers_id"))
	assert.Equal(t, "O3", combined.Cell(2, "orders_id"))
}

func TestReconcile_KeyCoercionAcrossNumericTypes(t *testing.T) {
	// String on one side, json.Number on the other still joins.
	customers := testCustomersTable(Record{"id": "42", "email": "n@b.cz"})
	orders := testOrdersTable(Record{"id": "O1", "customer_id": json.Number("42"), "item_type": "order"})

	combined, err := Reconcile(customers, orders, testCombinedColumns)
	require.NoError(t, err)
	require.Equal(t, 1, combined.Len())
	assert.Equal(t, "n@b.cz", combined.Cell(0, "customers_email"))
}

func TestReconcile_ProjectsOnlyListedColumns(t *testing.T) {
	customers := testCustomersTable(Record{"id": "1", "email": "a@b.cz", "tier": "gold"})
	orders := testOrdersTable(Record{"id": "O1", "customer_id": "1", "item_type": "order", "note": "extra"})

	combined, err := Reconcile(customers, orders, testCombinedColumns)
	require.NoError(t, err)

	assert.Equal(t, testCombinedColumns, combined.Columns())
	assert.False(t, combined.HasColumn("customers_tier"))
	assert.False(t, combined.HasColumn("orders_note"))
}

func TestReconcile_MissingJoinKeyIsFatal(t *testing.T) {
	withKeys := testCustomersTable(Record{"id": "1", "email": "a@b.cz"})
	withoutKeys := NewTable()
	withoutKeys.Append(Record{"orders_id": "O1", "orders_item_type": "order"})

	_, err := Reconcile(withKeys, withoutKeys, testCombinedColumns)
	assert.ErrorIs(t, err, ErrJoinKeyMissing)

	orders := testOrdersTable(Record{"id": "O1", "customer_id": "1", "item_type": "order"})
	noIDCustomers := testCustomersTable(Record{"email": "a@b.cz"})
	_, err = Reconcile(noIDCustomers, orders, testCombinedColumns)
	assert.ErrorIs(t, err, ErrJoinKeyMissing)
}

func TestReconcile_MissingProjectionColumnIsFatal(t *testing.T) {
	customers := testCustomersTable(Record{"id": "1"})
	orders := testOrdersTable(Record{"id": "O1", "customer_id": "1", "item_type": "order"})

	_, err := Reconcile(customers, orders, testCombinedColumns) // customers_email absent
	assert.ErrorIs(t, err, ErrCombinedColumnMissing)
}

func TestReconcile_FirstCustomerRowWinsOnDuplicateKey(t *testing.T) {
	customers := testCustomersTable(
		Record{"id": "1", "email": "first@b.cz"},
		Record{"id": "1", "email": "second@b.cz"},
	)
	orders := testOrdersTable(Record{"id": "O1", "customer_id": "1", "item_type": "order"})

	combined, err := Reconcile(customers, orders, testCombinedColumns)
	require.NoError(t, err)
	require.Equal(t, 1, combined.Len())
	assert.Equal(t, "first@b.cz", combined.Cell(0, "customers_email"))
}

func TestDefaultCombinedColumns_CarryRefundFields(t *testing.T) {
	for _, col := range []string{"orders_refund_count", "orders_refund_id", "orders_refund_created_at"} {
		assert.Contains(t, DefaultCombinedColumns, col)
	}
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "42", "42"},
		{"json number", json.Number("42"), "42"},
		{"int", 42, "42"},
		{"int64", int64(42), "42"},
		{"float without exponent", float64(7316577730000), "7316577730000"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalKey(tt.in))
		})
	}
}
