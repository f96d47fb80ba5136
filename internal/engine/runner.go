package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rwallach/sentinel/internal/domain"
)

// RunSummary aggregates the outcome of one batch run.
type RunSummary struct {
	RunID              string  `json:"run_id"`
	PositionsProcessed int     `json:"positions_processed"`
	PositionsUpdated   int     `json:"positions_updated"`
	PositionsClosed    int     `json:"positions_closed"`
	Errors             int     `json:"errors"`
	ExecutionTimeMS    int64   `json:"execution_time_ms"`
	Success            bool    `json:"success"`
	Error              *string `json:"error,omitempty"`
}

// RunnerConfig controls batch sizing and pacing.
type RunnerConfig struct {
	// BatchSize caps how many positions one run pulls from the store.
	BatchSize int
	// Workers is the number of concurrent position processors.
	Workers int
	// ItemDelay is inserted between items on each worker to pace upstream
	// API calls. Zero disables pacing.
	ItemDelay time.Duration
	// RunCeiling bounds the wall-clock time of one run. Positions not
	// reached before the ceiling are picked up by the next run.
	RunCeiling time.Duration
}

const (
	defaultBatchSize  = 50
	defaultWorkers    = 4
	defaultRunCeiling = 4 * time.Minute
)

// Runner executes batch runs over all open positions.
type Runner struct {
	positions domain.PositionStore
	processor *Processor
	cfg       RunnerConfig
	logger    *slog.Logger
}

// NewRunner creates a Runner. Zero config fields fall back to defaults.
func NewRunner(positions domain.PositionStore, processor *Processor, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.RunCeiling <= 0 {
		cfg.RunCeiling = defaultRunCeiling
	}
	return &Runner{
		positions: positions,
		processor: processor,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "runner")),
	}
}

// RunOnce executes a single batch run: list open positions, process each on
// the worker pool and aggregate outcomes. Only a failure to list positions
// fails the run; per-position failures are counted and the run continues.
func (r *Runner) RunOnce(ctx context.Context) (RunSummary, error) {
	start := time.Now()
	summary := RunSummary{RunID: uuid.NewString()}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RunCeiling)
	defer cancel()

	logger := r.logger.With(slog.String("run_id", summary.RunID))
	logger.InfoContext(ctx, "run started",
		slog.Int("batch_size", r.cfg.BatchSize),
		slog.Int("workers", r.cfg.Workers),
	)

	positions, err := r.positions.ListOpen(ctx, r.cfg.BatchSize)
	if err != nil {
		summary.ExecutionTimeMS = time.Since(start).Milliseconds()
		msg := err.Error()
		summary.Error = &msg
		return summary, fmt.Errorf("engine: list open positions: %w", err)
	}

	jobs := make(chan domain.Position)
	results := make(chan Outcome, len(positions))

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, jobs, results)
		}()
	}

	dispatched := 0
dispatch:
	for _, pos := range positions {
		select {
		case jobs <- pos:
			dispatched++
		case <-ctx.Done():
			// Ceiling reached. The remainder stays open and is listed
			// first by the next run.
			logger.WarnContext(ctx, "run ceiling reached, deferring remainder",
				slog.Int("deferred", len(positions)-dispatched),
			)
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for out := range results {
		summary.PositionsProcessed++
		if out.Updated {
			summary.PositionsUpdated++
		}
		if out.Action == ActionClose {
			summary.PositionsClosed++
		}
		if out.Err != nil {
			summary.Errors++
		}
	}

	summary.ExecutionTimeMS = time.Since(start).Milliseconds()
	summary.Success = true

	logger.InfoContext(ctx, "run finished",
		slog.Int("processed", summary.PositionsProcessed),
		slog.Int("updated", summary.PositionsUpdated),
		slog.Int("closed", summary.PositionsClosed),
		slog.Int("errors", summary.Errors),
		slog.Int64("execution_time_ms", summary.ExecutionTimeMS),
	)
	return summary, nil
}

func (r *Runner) worker(ctx context.Context, jobs <-chan domain.Position, results chan<- Outcome) {
	for pos := range jobs {
		results <- r.processSafe(ctx, pos)
		if r.cfg.ItemDelay > 0 {
			select {
			case <-time.After(r.cfg.ItemDelay):
			case <-ctx.Done():
			}
		}
	}
}

// processSafe confines a panic in one position's cycle to that position.
func (r *Runner) processSafe(ctx context.Context, pos domain.Position) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "panic while processing position",
				slog.String("position_id", pos.ID),
				slog.Any("panic", rec),
			)
			out = Outcome{PositionID: pos.ID, UserID: pos.UserID, Err: fmt.Errorf("engine: panic: %v", rec)}
		}
	}()
	return r.processor.Process(ctx, pos)
}
