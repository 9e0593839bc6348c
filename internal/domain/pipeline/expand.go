package pipeline

// Item context discriminators for expanded order rows.
const (
	ItemTypeOrder       = "order"
	ItemTypeFulfillment = "fulfillment"
)

// Field names of the expanded sub-lists on a raw order.
const (
	lineItemsField    = "line_items"
	fulfillmentsField = "fulfillments"
	refundsField      = "refunds"
)

// ExpandOrders denormalizes raw orders into one row per line item and per
// fulfillment line item. An order with N line items and M fulfillments yields
// max(N,1) order-context rows plus, for each fulfillment, max(len(items),1)
// fulfillment-context rows. Every row carries an independent copy of the
// order's flattened scalar fields plus the refund summary fields, which are
// always present so the combined projection can rely on them.
func ExpandOrders(orders []Mapping, shopName string) []Record {
	rows := make([]Record, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, expandOrder(order, shopName)...)
	}
	return rows
}

func expandOrder(order Mapping, shopName string) []Record {
	base := make(Mapping, len(order))
	for k, v := range order {
		if k == lineItemsField || k == fulfillmentsField || k == refundsField {
			continue
		}
		base[k] = v
	}
	flat := Flatten(base, shopName)
	overlayRefunds(flat, order)

	var rows []Record
	items, _ := order[lineItemsField].(Sequence)
	if len(items) == 0 {
		rows = append(rows, itemRow(flat, ItemTypeOrder, nil, nil))
	} else {
		for _, item := range items {
			m, _ := item.(Mapping)
			rows = append(rows, itemRow(flat, ItemTypeOrder, m, nil))
		}
	}

	fulfillments, _ := order[fulfillmentsField].(Sequence)
	for _, f := range fulfillments {
		fm, _ := f.(Mapping)
		fitems, _ := fm[lineItemsField].(Sequence)
		if len(fitems) == 0 {
			rows = append(rows, itemRow(flat, ItemTypeFulfillment, nil, fm))
			continue
		}
		for _, item := range fitems {
			m, _ := item.(Mapping)
			rows = append(rows, itemRow(flat, ItemTypeFulfillment, m, fm))
		}
	}
	return rows
}

// itemRow copies the order's base fields and overlays the expansion fields.
// The overlay wins on name collisions, so an order-level fulfillment_status
// is replaced by the row's fulfillment context.
func itemRow(base Record, itemType string, item, fulfillment Mapping) Record {
	row := base.Clone()
	row["item_type"] = itemType
	row["item_id"] = scalarField(item, "id")
	row["item_title"] = scalarField(item, "title")
	row["item_quantity"] = scalarField(item, "quantity")
	row["item_price"] = scalarField(item, "price")
	row["fulfillment_id"] = scalarField(fulfillment, "id")
	row["fulfillment_status"] = scalarField(fulfillment, "status")
	return row
}

// overlayRefunds summarizes the order's refund list into fixed fields. The
// refunds sub-list is excluded from flattening, so these are the only refund
// columns rows ever carry and they exist on every row, refunded or not.
func overlayRefunds(flat Record, order Mapping) {
	refunds, _ := order[refundsField].(Sequence)
	flat["refund_count"] = len(refunds)
	var first Mapping
	if len(refunds) > 0 {
		first, _ = refunds[0].(Mapping)
	}
	flat["refund_id"] = scalarField(first, "id")
	flat["refund_created_at"] = scalarField(first, "created_at")
}
