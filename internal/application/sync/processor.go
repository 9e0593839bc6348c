package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/pipeline"
)

// Config holds the run-level settings of the batch processor. Stores keep
// their configured order; the run iterates them exactly in that order.
type Config struct {
	Stores          []pipeline.Store
	CustomersAllTab string
	OrdersAllTab    string
	CombinedTab     string
	CombinedColumns []string
	MetafieldLimit  int
}

// RunResult collects the per-store outcomes of one run plus the combined
// table row count.
type RunResult struct {
	RunID        string
	Outcomes     []pipeline.StoreOutcome
	Messages     []string
	CombinedRows int
}

// Summary renders the run as the human-readable multi-line report returned
// by the trigger endpoint.
func (r *RunResult) Summary() string {
	return strings.Join(r.Messages, "\n")
}

// Processor drives one full synchronization run: fetch, flatten, expand,
// publish per-store tabs, accumulate across stores, reconcile, publish the
// union and combined tabs. Runs are strictly sequential; the accumulators
// are only ever touched by the running goroutine.
type Processor struct {
	cfg    Config
	source pipeline.Source
	sink   pipeline.Sink
	logger *zap.Logger
}

// NewProcessor creates a batch processor over the given source and sink.
func NewProcessor(cfg Config, source pipeline.Source, sink pipeline.Sink, logger *zap.Logger) *Processor {
	if cfg.MetafieldLimit <= 0 {
		cfg.MetafieldLimit = pipeline.DefaultMetafieldLimit
	}
	if len(cfg.CombinedColumns) == 0 {
		cfg.CombinedColumns = pipeline.DefaultCombinedColumns
	}
	return &Processor{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
	}
}

// Run executes one synchronization run. Per-store credential and empty-data
// conditions are recorded as outcomes and do not abort the run; transport
// and schema errors propagate and abort it. Per-store tabs published before
// an abort stay published.
func (p *Processor) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", result.RunID))
	log.Info("Starting store sync run", zap.Int("stores", len(p.cfg.Stores)))

	allCustomers := pipeline.NewTable()
	allOrders := pipeline.NewTable()

	for _, store := range p.cfg.Stores {
		if err := p.processStore(ctx, log, store, allCustomers, allOrders, result); err != nil {
			return nil, err
		}
	}

	if allCustomers.Len() > 0 && allOrders.Len() > 0 {
		combined, err := pipeline.Reconcile(
			allCustomers.Prefixed(pipeline.CustomerPrefix),
			allOrders.Prefixed(pipeline.OrderPrefix),
			p.cfg.CombinedColumns,
		)
		if err != nil {
			log.Error("Reconciliation failed", zap.Error(err))
			return nil, err
		}
		if err := p.publish(ctx, p.cfg.CombinedTab, combined); err != nil {
			return nil, err
		}
		result.CombinedRows = combined.Len()
		result.Messages = append(result.Messages,
			fmt.Sprintf("Merged customer and orders data has been saved to tab: %s.", p.cfg.CombinedTab))
	}

	if allCustomers.Len() > 0 {
		if err := p.publish(ctx, p.cfg.CustomersAllTab, allCustomers.Prefixed(pipeline.CustomerPrefix)); err != nil {
			return nil, err
		}
		result.Messages = append(result.Messages,
			fmt.Sprintf("Combined customer data has been saved to tab: %s.", p.cfg.CustomersAllTab))
	}
	if allOrders.Len() > 0 {
		if err := p.publish(ctx, p.cfg.OrdersAllTab, allOrders.Prefixed(pipeline.OrderPrefix)); err != nil {
			return nil, err
		}
		result.Messages = append(result.Messages,
			fmt.Sprintf("Combined orders data has been saved to tab: %s.", p.cfg.OrdersAllTab))
	}

	log.Info("Store sync run completed",
		zap.Int("customers", allCustomers.Len()),
		zap.Int("order_rows", allOrders.Len()),
		zap.Int("combined_rows", result.CombinedRows),
	)
	return result, nil
}

// processStore fetches and publishes one store, appending its rows to the
// cross-store accumulators.
func (p *Processor) processStore(
	ctx context.Context,
	log *zap.Logger,
	store pipeline.Store,
	allCustomers, allOrders *pipeline.Table,
	result *RunResult,
) error {
	storeLog := log.With(zap.String("store", store.ID))

	if !store.HasCredentials() {
		storeLog.Warn("Missing credentials, skipping store")
		p.recordOutcome(result, pipeline.StoreOutcome{
			StoreID: store.ID,
			Kind:    pipeline.OutcomeMissingCredentials,
			Message: fmt.Sprintf("Missing credentials for store: %s", store.ID),
		})
		return nil
	}

	storeLog.Info("Fetching customers", zap.String("shop", store.ShopName))
	customers, err := p.source.FetchCustomers(ctx, store)
	if err != nil {
		return fmt.Errorf("fetching customers for store %s: %w", store.ID, err)
	}

	storeLog.Info("Fetching orders", zap.String("shop", store.ShopName))
	orders, err := p.source.FetchOrders(ctx, store)
	if err != nil {
		return fmt.Errorf("fetching orders for store %s: %w", store.ID, err)
	}

	if len(customers) > 0 {
		droppedTotal := 0
		flattened := make([]pipeline.Record, 0, len(customers))
		for _, customer := range customers {
			flat, dropped := pipeline.FlattenCustomer(customer, store.ShopName, p.cfg.MetafieldLimit)
			droppedTotal += dropped
			flattened = append(flattened, flat)
		}
		if droppedTotal > 0 {
			storeLog.Warn("Metafield entries beyond pivot limit were dropped",
				zap.Int("dropped", droppedTotal),
				zap.Int("limit", p.cfg.MetafieldLimit),
			)
		}

		perStore := pipeline.NewTable()
		perStore.AppendAll(flattened)
		if err := p.publish(ctx, store.CustomerTab, perStore); err != nil {
			return err
		}
		allCustomers.AppendAll(flattened)
		p.recordOutcome(result, pipeline.StoreOutcome{
			StoreID: store.ID,
			Kind:    pipeline.OutcomeSynced,
			Message: fmt.Sprintf("Flattened customers data for %s has been saved to tab: %s.", store.ShopName, store.CustomerTab),
		})
	} else {
		storeLog.Warn("No customer data found")
		p.recordOutcome(result, pipeline.StoreOutcome{
			StoreID: store.ID,
			Kind:    pipeline.OutcomeNoData,
			Message: fmt.Sprintf("No customer data found for store: %s", store.ShopName),
		})
	}

	if len(orders) > 0 {
		rows := pipeline.ExpandOrders(orders, store.ShopName)
		revenue := pipeline.GrossRevenue(rows)
		storeLog.Info("Processed orders",
			zap.Int("orders", len(orders)),
			zap.Int("rows", len(rows)),
			zap.String("gross_revenue", revenue.String()),
		)

		perStore := pipeline.NewTable()
		perStore.AppendAll(rows)
		if err := p.publish(ctx, store.OrderTab, perStore); err != nil {
			return err
		}
		allOrders.AppendAll(rows)
		p.recordOutcome(result, pipeline.StoreOutcome{
			StoreID:      store.ID,
			Kind:         pipeline.OutcomeSynced,
			Message:      fmt.Sprintf("Processed orders data for %s has been saved to tab: %s.", store.ShopName, store.OrderTab),
			GrossRevenue: revenue,
		})
	} else {
		storeLog.Warn("No orders data found")
		p.recordOutcome(result, pipeline.StoreOutcome{
			StoreID: store.ID,
			Kind:    pipeline.OutcomeNoData,
			Message: fmt.Sprintf("No orders data found for store: %s", store.ShopName),
		})
	}

	return nil
}

func (p *Processor) publish(ctx context.Context, tab string, table *pipeline.Table) error {
	if err := p.sink.Publish(ctx, tab, table); err != nil {
		return fmt.Errorf("publishing tab %s: %w", tab, err)
	}
	return nil
}

func (p *Processor) recordOutcome(result *RunResult, outcome pipeline.StoreOutcome) {
	result.Outcomes = append(result.Outcomes, outcome)
	result.Messages = append(result.Messages, outcome.Message)
}
