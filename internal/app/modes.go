package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rwallach/sentinel/internal/domain"
	"github.com/rwallach/sentinel/internal/engine"
)

// runLockKey guards against overlapping batch runs when several daemon
// instances share one Redis.
const runLockKey = "sentinel:engine:run"

// archiveInterval is how often the daemon checks for archivable events.
const archiveInterval = 6 * time.Hour

// RunMode executes a single batch run over all open positions and, when
// archival is configured, one archive pass afterwards. It is the mode used
// by external schedulers (cron, Kubernetes CronJob).
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	summary, err := deps.Runner.RunOnce(ctx)
	a.logSummary(ctx, summary)
	if err != nil {
		return fmt.Errorf("app: batch run: %w", err)
	}

	if deps.Archiver != nil {
		if err := a.archivePass(ctx, deps); err != nil {
			a.logger.WarnContext(ctx, "archive pass failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// DaemonMode runs batch cycles on a fixed interval until the context is
// cancelled. Each cycle takes a short-lived Redis lock so that only one
// instance processes positions at a time; losing the lock skips the cycle
// rather than failing it.
func (a *App) DaemonMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	if deps.Streamer != nil {
		g.Go(func() error {
			return deps.Streamer.Run(ctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Engine.Interval.Duration)
		defer ticker.Stop()

		// First cycle immediately, then on the interval.
		if err := a.lockedRun(ctx, deps); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := a.lockedRun(ctx, deps); err != nil {
					return err
				}
			}
		}
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			ticker := time.NewTicker(archiveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := a.archivePass(ctx, deps); err != nil {
						a.logger.WarnContext(ctx, "archive pass failed", slog.String("error", err.Error()))
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// KillTriggerMode activates a manual kill switch for the scope configured
// under [kill_switch] and exits. Matching positions are closed by the next
// batch run.
func (a *App) KillTriggerMode(ctx context.Context, deps *Dependencies) error {
	ks := a.cfg.KillSwitch
	state, err := deps.KillSwitchAdmin.Trigger(ctx, engine.TriggerParams{
		UserID:    ks.UserID,
		Exchange:  ks.Exchange,
		Symbol:    ks.Symbol,
		Trigger:   domain.KillSwitchManual,
		Reason:    ks.Reason,
		Cooldown:  ks.Cooldown.Duration,
		TriggerBy: ks.TriggeredBy,
	})
	if err != nil {
		return fmt.Errorf("app: trigger kill switch: %w", err)
	}
	a.logger.InfoContext(ctx, "kill switch armed",
		slog.String("kill_switch_id", state.ID),
		slog.String("user_id", state.UserID),
		slog.String("exchange", state.Exchange),
		slog.String("symbol", state.Symbol),
	)
	return nil
}

// KillResetMode deactivates the kill switch covering the configured scope.
// Automatic switches still inside their cooldown are rejected.
func (a *App) KillResetMode(ctx context.Context, deps *Dependencies) error {
	ks := a.cfg.KillSwitch
	if err := deps.KillSwitchAdmin.Reset(ctx, ks.UserID, ks.Exchange, ks.Symbol); err != nil {
		return fmt.Errorf("app: reset kill switch: %w", err)
	}
	a.logger.InfoContext(ctx, "kill switch reset",
		slog.String("user_id", ks.UserID),
		slog.String("exchange", ks.Exchange),
		slog.String("symbol", ks.Symbol),
	)
	return nil
}

// lockedRun executes one batch cycle under the shared run lock. A held lock
// means another instance is mid-run, which is not an error.
func (a *App) lockedRun(ctx context.Context, deps *Dependencies) error {
	release, err := deps.LockManager.Acquire(ctx, runLockKey, a.cfg.Engine.LockTTL.Duration)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "run lock held elsewhere, skipping cycle")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("app: acquire run lock: %w", err)
	}
	defer release()

	summary, err := deps.Runner.RunOnce(ctx)
	a.logSummary(ctx, summary)
	if err != nil && ctx.Err() == nil {
		// A failed run should not take the daemon down; the next tick
		// retries from a clean slate.
		a.logger.ErrorContext(ctx, "batch run failed", slog.String("error", err.Error()))
	}
	return ctx.Err()
}

// archivePass moves events older than the retention window to cold storage.
func (a *App) archivePass(ctx context.Context, deps *Dependencies) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	archived, err := deps.Archiver.ArchiveBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if archived > 0 {
		a.logger.InfoContext(ctx, "archived events",
			slog.Int("count", archived),
			slog.Time("cutoff", cutoff),
		)
	}
	return nil
}

func (a *App) logSummary(ctx context.Context, s engine.RunSummary) {
	attrs := []any{
		slog.String("run_id", s.RunID),
		slog.Int("processed", s.PositionsProcessed),
		slog.Int("updated", s.PositionsUpdated),
		slog.Int("closed", s.PositionsClosed),
		slog.Int("errors", s.Errors),
		slog.Int64("execution_time_ms", s.ExecutionTimeMS),
		slog.Bool("success", s.Success),
	}
	if s.Success {
		a.logger.InfoContext(ctx, "run complete", attrs...)
	} else {
		a.logger.ErrorContext(ctx, "run failed", attrs...)
	}
}
