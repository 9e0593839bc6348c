package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Store identifies one configured storefront and its destination tabs. Read
// once from configuration at the start of a run, never mutated.
type Store struct {
	ID          string
	ShopName    string
	AccessToken string
	APIVersion  string
	CustomerTab string
	OrderTab    string
	UseGraphQL  bool
}

// HasCredentials reports whether the store can be fetched at all. A store
// without credentials is skipped, not failed.
func (s Store) HasCredentials() bool {
	return s.ShopName != "" && s.AccessToken != ""
}

// Source yields the raw nested records of one store. Implementations handle
// pagination and auth; callers see complete record lists.
type Source interface {
	FetchCustomers(ctx context.Context, store Store) ([]Mapping, error)
	FetchOrders(ctx context.Context, store Store) ([]Mapping, error)
}

// Sink publishes a table to a named destination tab, replacing the tab's
// prior contents and creating the tab if absent.
type Sink interface {
	Publish(ctx context.Context, tab string, table *Table) error
}

// OutcomeKind classifies a per-store, non-fatal result of a run.
type OutcomeKind string

const (
	OutcomeSynced             OutcomeKind = "SYNCED"
	OutcomeNoData             OutcomeKind = "NO_DATA"
	OutcomeMissingCredentials OutcomeKind = "MISSING_CREDENTIALS"
)

// StoreOutcome records one per-store result line of a run. GrossRevenue is
// the decimal sum of price x quantity over the store's order-context rows.
type StoreOutcome struct {
	StoreID      string
	Kind         OutcomeKind
	Message      string
	GrossRevenue decimal.Decimal
}

// GrossRevenue sums item_price x item_quantity over the order-context rows,
// skipping unparseable cells. Fulfillment-context rows repeat the same line
// items and are excluded so nothing is counted twice.
func GrossRevenue(rows []Record) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row["item_type"] != ItemTypeOrder {
			continue
		}
		price, err := parseDecimal(row["item_price"])
		if err != nil {
			continue
		}
		qty, err := parseDecimal(row["item_quantity"])
		if err != nil {
			continue
		}
		total = total.Add(price.Mul(qty))
	}
	return total
}

func parseDecimal(v any) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, fmt.Errorf("pipeline: nil decimal cell")
	}
	return decimal.NewFromString(fmt.Sprint(v))
}
