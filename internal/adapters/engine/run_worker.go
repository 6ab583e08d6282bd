package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/application"
	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

// RunWorker claims due runs and advances each through the state machine.
// Claim tokens with a TTL keep a crashed worker from stranding its batch.
type RunWorker struct {
	logger    *slog.Logger
	runs      ports.RunRepository
	service   *application.Service
	interval  time.Duration
	batchSize int
	claimTTL  time.Duration
}

func NewRunWorker(
	logger *slog.Logger,
	runs ports.RunRepository,
	service *application.Service,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
) *RunWorker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if claimTTL <= 0 {
		claimTTL = 2 * time.Minute
	}
	return &RunWorker{
		logger:    logger.With("module", "engine.run_worker", "layer", "adapter"),
		runs:      runs,
		service:   service,
		interval:  interval,
		batchSize: batchSize,
		claimTTL:  claimTTL,
	}
}

// Run executes the claim-advance loop until context cancellation.
func (w *RunWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "run worker iteration failed",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *RunWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	runs, err := w.runs.ClaimDue(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}

	advanced := 0
	failed := 0
	for _, run := range runs {
		if err := w.service.Advance(ctx, run); err != nil {
			failed++
			w.logger.ErrorContext(ctx, "run advance failed",
				"operation", "advance",
				"outcome", "failure",
				"run_id", run.RunID,
				"state", string(run.State),
				"error", err,
			)
		} else {
			advanced++
		}
		_ = w.runs.Release(ctx, run.RunID, claimToken)
	}

	if len(runs) > 0 {
		w.logger.InfoContext(ctx, "run batch processed",
			"operation", "process_once",
			"outcome", "success",
			"batch_size", len(runs),
			"advanced_count", advanced,
			"failed_count", failed,
		)
	}
	return nil
}
