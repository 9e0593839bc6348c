package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/application/sync"
	"github.com/storesync/backend/internal/infrastructure/logger"
)

// SyncRunner runs one full sync across all configured stores
type SyncRunner interface {
	Run(ctx context.Context) (*sync.RunResult, error)
}

// SyncHandler exposes the sync trigger endpoint
type SyncHandler struct {
	BaseHandler
	runner  SyncRunner
	timeout time.Duration
	logger  *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(runner SyncRunner, timeout time.Duration, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// GET mirrors the scheduler-friendly trigger, POST is for manual runs
	rg.GET("/sync/run", h.Run)
	rg.POST("/sync/run", h.Run)
}

// RunResponse reports the outcome of a sync run
type RunResponse struct {
	RunID        string            `json:"run_id"`
	Summary      string            `json:"summary"`
	Stores       []StoreRunOutcome `json:"stores"`
	CombinedRows int               `json:"combined_rows"`
}

// StoreRunOutcome reports a single store's result within a run
type StoreRunOutcome struct {
	StoreID      string `json:"store_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	GrossRevenue string `json:"gross_revenue,omitempty"`
}

// Run triggers a sync of every configured store into the spreadsheet
func (h *SyncHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	log := logger.GetGinLogger(c, h.logger)

	result, err := h.runner.Run(ctx)
	if err != nil {
		// The request-scoped logger already carries the request id.
		log.Error("Sync run failed", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	log.Info("Sync run completed",
		zap.String("run_id", result.RunID),
		zap.Int("stores", len(result.Outcomes)),
		zap.Int("combined_rows", result.CombinedRows),
	)

	h.Success(c, toRunResponse(result))
}

func toRunResponse(result *sync.RunResult) RunResponse {
	stores := make([]StoreRunOutcome, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		dto := StoreRunOutcome{
			StoreID: outcome.StoreID,
			Status:  string(outcome.Kind),
			Message: outcome.Message,
		}
		if !outcome.GrossRevenue.IsZero() {
			dto.GrossRevenue = outcome.GrossRevenue.String()
		}
		stores = append(stores, dto)
	}
	return RunResponse{
		RunID:        result.RunID,
		Summary:      result.Summary(),
		Stores:       stores,
		CombinedRows: result.CombinedRows,
	}
}
