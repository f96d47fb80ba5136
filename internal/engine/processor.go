// Package engine drives the position review cycle. A Processor evaluates a
// single open position against live prices, account risk state and the
// configured protective rules; a Runner fans a batch of positions out over a
// worker pool and aggregates the results into a run summary.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
	"github.com/rwallach/sentinel/internal/notify"
	"github.com/rwallach/sentinel/internal/reconcile"
	"github.com/rwallach/sentinel/internal/risk"
	"github.com/rwallach/sentinel/internal/rules"
)

// Action identifies the primary outcome of a review cycle for one position.
type Action string

const (
	ActionNone      Action = "none"
	ActionClose     Action = "close"
	ActionBreakEven Action = "break_even"
	ActionTrailing  Action = "trailing_update"
	ActionPartialTP Action = "partial_take_profit"
)

// Outcome summarizes what the Processor did with one position.
type Outcome struct {
	PositionID  string
	UserID      string
	Action      Action
	CloseReason rules.CloseReason
	Updated     bool
	Err         error
}

// Alerter receives operator-facing notifications for noteworthy events.
type Alerter interface {
	Notify(ctx context.Context, alert notify.Alert) error
}

// Processor evaluates a single position per cycle. It fetches the latest
// price, recomputes unrealized PnL, evaluates the auto-close chain and the
// protective stop rules, reconciles open orders and persists the result.
type Processor struct {
	positions    domain.PositionStore
	trades       domain.TradeStore
	accounts     domain.AccountStore
	limits       domain.RiskLimitStore
	killSwitches domain.KillSwitchStore
	events       domain.EventStore
	quoter       domain.PriceQuoter
	reconciler   *reconcile.Reconciler
	bus          domain.SignalBus
	alerter      Alerter
	killAdmin    *KillSwitchAdmin

	callTimeout  time.Duration
	killCooldown time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// ProcessorConfig carries the collaborators a Processor needs. Bus and
// Alerter are optional; a nil value disables that output.
type ProcessorConfig struct {
	Positions    domain.PositionStore
	Trades       domain.TradeStore
	Accounts     domain.AccountStore
	Limits       domain.RiskLimitStore
	KillSwitches domain.KillSwitchStore
	Events       domain.EventStore
	Quoter       domain.PriceQuoter
	Reconciler   *reconcile.Reconciler
	Bus          domain.SignalBus
	Alerter      Alerter
	// KillAdmin, when set, lets the processor trip an automatic kill switch
	// for the whole account on a daily loss breach.
	KillAdmin          *KillSwitchAdmin
	CallTimeout        time.Duration
	KillSwitchCooldown time.Duration
}

const (
	defaultCallTimeout  = 10 * time.Second
	defaultKillCooldown = 30 * time.Minute
)

// NewProcessor creates a Processor from the given collaborators.
func NewProcessor(cfg ProcessorConfig, logger *slog.Logger) *Processor {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	cooldown := cfg.KillSwitchCooldown
	if cooldown <= 0 {
		cooldown = defaultKillCooldown
	}
	return &Processor{
		positions:    cfg.Positions,
		trades:       cfg.Trades,
		accounts:     cfg.Accounts,
		limits:       cfg.Limits,
		killSwitches: cfg.KillSwitches,
		events:       cfg.Events,
		quoter:       cfg.Quoter,
		reconciler:   cfg.Reconciler,
		bus:          cfg.Bus,
		alerter:      cfg.Alerter,
		killAdmin:    cfg.KillAdmin,
		callTimeout:  timeout,
		killCooldown: cooldown,
		logger:       logger.With(slog.String("component", "processor")),
		now:          time.Now,
	}
}

// UnrealizedPnL computes the mark-to-market profit for a position at the
// given price. Longs gain as price rises, shorts as it falls; futures
// positions are scaled by leverage, spot positions are not.
func UnrealizedPnL(pos domain.Position, price float64) float64 {
	delta := price - pos.EntryPrice
	if !pos.IsLong() {
		delta = -delta
	}
	return delta * pos.Quantity * pos.EffectiveLeverage()
}

// Process runs one full review cycle for a position. Failures in any stage
// are confined to this position; the returned Outcome carries the error so
// the caller can count it without aborting the batch.
func (p *Processor) Process(ctx context.Context, pos domain.Position) Outcome {
	out := Outcome{PositionID: pos.ID, UserID: pos.UserID, Action: ActionNone}
	now := p.now().UTC()

	price, err := p.fetchPrice(ctx, pos)
	if err != nil {
		p.logger.WarnContext(ctx, "price unavailable, skipping position",
			slog.String("position_id", pos.ID),
			slog.String("symbol", pos.Symbol),
			slog.String("error", err.Error()),
		)
		out.Err = err
		return out
	}

	prevPnL := pos.UnrealizedPnL
	pos.CurrentPrice = price
	pos.UnrealizedPnL = UnrealizedPnL(pos, price)

	// A position already flagged for close only gets its mark refreshed and
	// its orders reconciled. No rule may fire twice.
	if pos.Status == domain.PositionStatusClosing {
		p.reconcileOrders(ctx, pos)
		if err := p.persist(ctx, &pos, now); err != nil {
			out.Err = err
			return out
		}
		out.Updated = true
		return out
	}

	actx, err := p.accountContext(ctx, pos, now)
	if err != nil {
		if errors.Is(err, domain.ErrLimitsMissing) {
			p.appendEvent(ctx, domain.Event{
				UserID:     pos.UserID,
				PositionID: pos.ID,
				Type:       domain.EventReviewRequired,
				Reason:     "risk limits missing",
				Detail:     map[string]any{"symbol": pos.Symbol},
			})
		}
		out.Err = err
		return out
	}

	if actx.snapshot.Level == domain.RiskLevelCritical {
		p.publishRiskAlert(ctx, pos, actx.snapshot)
	}

	if reason, ok := rules.EvaluateAutoClose(pos, price, actx.rule); ok {
		p.flagClose(&pos, reason, &out)
		if reason == rules.CloseReasonDailyLossLimit {
			p.tripDailyLossKillSwitch(ctx, pos, actx)
		}
	} else if rules.StopLossTriggered(pos, price) {
		p.flagClose(&pos, rules.CloseReasonStopLoss, &out)
	} else if rules.TakeProfitTriggered(pos, price) {
		p.flagClose(&pos, rules.CloseReasonTakeProfit, &out)
	} else if rules.TrailingStopHit(pos, price) {
		p.flagClose(&pos, rules.CloseReasonTrailingStop, &out)
	} else {
		p.applyManagers(ctx, &pos, price, now, &out)
	}

	p.reconcileOrders(ctx, pos)

	if out.Action == ActionClose {
		if err := p.commitClose(ctx, &pos, out.CloseReason, now); err != nil {
			out.Err = err
			return out
		}
	} else if err := p.persist(ctx, &pos, now); err != nil {
		out.Err = err
		return out
	}
	out.Updated = true

	p.appendEvent(ctx, domain.Event{
		UserID:     pos.UserID,
		PositionID: pos.ID,
		Type:       domain.EventPositionUpdated,
		Detail: map[string]any{
			"price":          price,
			"unrealized_pnl": pos.UnrealizedPnL,
			"pnl_delta":      pos.UnrealizedPnL - prevPnL,
			"action":         string(out.Action),
		},
	})
	return out
}

func (p *Processor) fetchPrice(ctx context.Context, pos domain.Position) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	price, err := p.quoter.Quote(ctx, pos.Symbol, pos.Exchange)
	if err != nil {
		return 0, fmt.Errorf("engine: quote %s: %w", pos.Symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("engine: quote %s: %w", pos.Symbol, domain.ErrPriceUnavailable)
	}
	return price, nil
}

// accountCtx is the per-user risk context each position is judged against.
type accountCtx struct {
	snapshot domain.RiskSnapshot
	rule     rules.AccountContext
}

func (p *Processor) accountContext(ctx context.Context, pos domain.Position, now time.Time) (accountCtx, error) {
	var actx accountCtx

	ks, err := p.killSwitches.Find(ctx, pos.UserID, pos.Exchange, pos.Symbol)
	if err != nil {
		return actx, fmt.Errorf("engine: find kill switch: %w", err)
	}
	ks = p.expireKillSwitch(ctx, ks, now)

	limits, err := p.limits.GetByUser(ctx, pos.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return actx, fmt.Errorf("engine: user %s: %w", pos.UserID, domain.ErrLimitsMissing)
		}
		return actx, fmt.Errorf("engine: load limits: %w", err)
	}

	account, err := p.accounts.GetByUser(ctx, pos.UserID)
	if err != nil {
		return actx, fmt.Errorf("engine: load account: %w", err)
	}

	trades, err := p.trades.ListByUser(ctx, pos.UserID)
	if err != nil {
		return actx, fmt.Errorf("engine: list trades: %w", err)
	}

	if peak := risk.UpdatePeak(account.Equity, account.PeakEquity); peak > account.PeakEquity {
		if err := p.accounts.UpdatePeak(ctx, pos.UserID, peak); err != nil {
			p.logger.WarnContext(ctx, "peak equity update failed",
				slog.String("user_id", pos.UserID),
				slog.String("error", err.Error()),
			)
		} else {
			account.PeakEquity = peak
		}
	}

	actx.snapshot = risk.BuildSnapshot(risk.SnapshotInput{
		Account:    account,
		Limits:     limits,
		Trades:     trades,
		KillSwitch: ks,
		Now:        now,
	})
	actx.rule = rules.AccountContext{
		KillSwitchActive: actx.snapshot.HasFlag(domain.FlagKillSwitchActive),
		DrawdownPct:      actx.snapshot.DrawdownPct,
		DailyLoss:        -actx.snapshot.DailyPnL,
		DailyLossPct:     -actx.snapshot.DailyPnLPct,
		Limits:           limits,
	}
	return actx, nil
}

// expireKillSwitch lazily deactivates an automatic kill switch whose cooldown
// has elapsed and returns the state the caller should evaluate against.
func (p *Processor) expireKillSwitch(ctx context.Context, ks *domain.KillSwitchState, now time.Time) *domain.KillSwitchState {
	if ks == nil || !ks.Active {
		return ks
	}
	if ks.TriggeredBy != domain.KillSwitchAutomatic || ks.ExpiresAt == nil || now.Before(*ks.ExpiresAt) {
		return ks
	}
	if err := p.killSwitches.Deactivate(ctx, ks.ID); err != nil {
		p.logger.WarnContext(ctx, "kill switch deactivation failed",
			slog.String("kill_switch_id", ks.ID),
			slog.String("error", err.Error()),
		)
		return ks
	}
	p.appendEvent(ctx, domain.Event{
		UserID: ks.UserID,
		Type:   domain.EventKillSwitchReset,
		Reason: "cooldown elapsed",
		Detail: map[string]any{"kill_switch_id": ks.ID},
	})
	reset := *ks
	reset.Active = false
	return &reset
}

// tripDailyLossKillSwitch arms an automatic account-wide kill switch when a
// daily loss breach closes a position, so every other position of the user is
// hard-stopped until the cooldown elapses. A second trip in the same run is
// absorbed by the store upsert.
func (p *Processor) tripDailyLossKillSwitch(ctx context.Context, pos domain.Position, actx accountCtx) {
	if p.killAdmin == nil || actx.rule.KillSwitchActive {
		return
	}
	_, err := p.killAdmin.Trigger(ctx, TriggerParams{
		UserID:   pos.UserID,
		Trigger:  domain.KillSwitchAutomatic,
		Reason:   "daily loss limit breached",
		Cooldown: p.killCooldown,
	})
	if err != nil {
		p.logger.WarnContext(ctx, "automatic kill switch trip failed",
			slog.String("user_id", pos.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Processor) flagClose(pos *domain.Position, reason rules.CloseReason, out *Outcome) {
	r := string(reason)
	pos.Status = domain.PositionStatusClosing
	pos.CloseReason = &r
	out.Action = ActionClose
	out.CloseReason = reason
}

// applyManagers runs the non-closing rule managers. Break-even takes
// precedence over a trailing update in the reported action, which in turn
// takes precedence over a partial take-profit execution.
func (p *Processor) applyManagers(ctx context.Context, pos *domain.Position, price float64, now time.Time, out *Outcome) {
	if state, activated := rules.ApplyBreakEven(*pos, price, now); activated {
		pos.Risk = state
		out.Action = ActionBreakEven
		p.appendEvent(ctx, domain.Event{
			UserID:     pos.UserID,
			PositionID: pos.ID,
			Type:       domain.EventBreakEvenActivated,
			Detail:     map[string]any{"stop_price": pos.EntryPrice},
		})
	}
	if state, moved := rules.UpdateTrailingStop(*pos, price); moved {
		pos.Risk = state
		if out.Action == ActionNone {
			out.Action = ActionTrailing
		}
		p.appendEvent(ctx, domain.Event{
			UserID:     pos.UserID,
			PositionID: pos.ID,
			Type:       domain.EventTrailingMoved,
			Detail:     map[string]any{"stop_price": state.Trailing.StopPrice},
		})
	}
	if state, fired := rules.ExecutePartialTakeProfits(*pos, price, now); len(fired) > 0 {
		pos.Risk = state
		if out.Action == ActionNone {
			out.Action = ActionPartialTP
		}
		p.appendEvent(ctx, domain.Event{
			UserID:     pos.UserID,
			PositionID: pos.ID,
			Type:       domain.EventPartialTPExecuted,
			Detail:     map[string]any{"levels": fired},
		})
	}
}

func (p *Processor) reconcileOrders(ctx context.Context, pos domain.Position) {
	if p.reconciler == nil {
		return
	}
	if _, err := p.reconciler.ReconcilePosition(ctx, pos); err != nil {
		p.logger.WarnContext(ctx, "order reconciliation failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	}
}

// commitClose flags the position for close through the store's one-way status
// gate, then persists the refreshed mark. Losing the MarkClosing race to a
// concurrent run is not an error.
func (p *Processor) commitClose(ctx context.Context, pos *domain.Position, reason rules.CloseReason, now time.Time) error {
	err := p.positions.MarkClosing(ctx, pos.ID, string(reason))
	switch {
	case errors.Is(err, domain.ErrPositionNotOpen):
		p.logger.InfoContext(ctx, "position already flagged for close",
			slog.String("position_id", pos.ID),
		)
	case err != nil:
		return fmt.Errorf("engine: mark closing: %w", err)
	default:
		p.appendEvent(ctx, domain.Event{
			UserID:     pos.UserID,
			PositionID: pos.ID,
			Type:       domain.EventCloseTriggered,
			Reason:     string(reason),
			Detail: map[string]any{
				"symbol":         pos.Symbol,
				"price":          pos.CurrentPrice,
				"unrealized_pnl": pos.UnrealizedPnL,
			},
		})
		p.publishClose(ctx, *pos, reason)
	}
	return p.persist(ctx, pos, now)
}

func (p *Processor) persist(ctx context.Context, pos *domain.Position, now time.Time) error {
	pos.UpdatedAt = now
	if err := p.positions.Update(ctx, *pos); err != nil {
		return fmt.Errorf("engine: persist position %s: %w", pos.ID, err)
	}
	return nil
}

func (p *Processor) publishClose(ctx context.Context, pos domain.Position, reason rules.CloseReason) {
	if p.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"position_id": pos.ID,
			"user_id":     pos.UserID,
			"symbol":      pos.Symbol,
			"reason":      string(reason),
			"price":       pos.CurrentPrice,
		})
		if err != nil {
			p.logger.WarnContext(ctx, "close signal marshal failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
			payload = nil
		}
		if err := p.bus.Publish(ctx, domain.EventCloseTriggered, payload); err != nil {
			p.logger.WarnContext(ctx, "close signal publish failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := p.bus.StreamAppend(ctx, domain.EventCloseTriggered, payload); err != nil {
			p.logger.WarnContext(ctx, "close signal stream append failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if p.alerter != nil {
		alert := notify.Alert{
			Event: domain.EventCloseTriggered,
			Title: fmt.Sprintf("Position close: %s", pos.Symbol),
			Body:  fmt.Sprintf("position %s flagged for close", pos.ID),
			Fields: []notify.Field{
				{Label: "Symbol", Value: pos.Symbol},
				{Label: "Reason", Value: string(reason)},
				{Label: "Price", Value: fmt.Sprintf("%.8g", pos.CurrentPrice)},
				{Label: "Unrealized PnL", Value: fmt.Sprintf("%.2f", pos.UnrealizedPnL)},
			},
		}
		if err := p.alerter.Notify(ctx, alert); err != nil {
			p.logger.WarnContext(ctx, "close alert failed",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// publishRiskAlert fans out a critical account snapshot: an audit event, a
// redis signal and an operator alert. It fires while the account context is
// evaluated, so a position review that ends without a close still surfaces
// the breach.
func (p *Processor) publishRiskAlert(ctx context.Context, pos domain.Position, snap domain.RiskSnapshot) {
	p.appendEvent(ctx, domain.Event{
		UserID:     pos.UserID,
		PositionID: pos.ID,
		Type:       domain.EventRiskAlert,
		Reason:     strings.Join(snap.Alerts, ","),
		Detail: map[string]any{
			"level":         string(snap.Level),
			"flags":         snap.Flags,
			"daily_pnl":     snap.DailyPnL,
			"daily_pnl_pct": snap.DailyPnLPct,
			"drawdown_pct":  snap.DrawdownPct,
			"exposure_pct":  snap.ExposurePct,
		},
	})

	if p.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"user_id":      pos.UserID,
			"level":        string(snap.Level),
			"flags":        snap.Flags,
			"daily_pnl":    snap.DailyPnL,
			"drawdown_pct": snap.DrawdownPct,
		})
		if err != nil {
			p.logger.WarnContext(ctx, "risk alert marshal failed",
				slog.String("user_id", pos.UserID),
				slog.String("error", err.Error()),
			)
			payload = nil
		}
		if err := p.bus.Publish(ctx, domain.EventRiskAlert, payload); err != nil {
			p.logger.WarnContext(ctx, "risk alert publish failed",
				slog.String("user_id", pos.UserID),
				slog.String("error", err.Error()),
			)
		}
		if err := p.bus.StreamAppend(ctx, domain.EventRiskAlert, payload); err != nil {
			p.logger.WarnContext(ctx, "risk alert stream append failed",
				slog.String("user_id", pos.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	if p.alerter != nil {
		alert := notify.Alert{
			Event: domain.EventRiskAlert,
			Title: fmt.Sprintf("Critical risk level: %s", pos.UserID),
			Body:  strings.Join(snap.Alerts, ", "),
			Fields: []notify.Field{
				{Label: "Daily PnL", Value: fmt.Sprintf("%.2f (%.2f%%)", snap.DailyPnL, snap.DailyPnLPct*100)},
				{Label: "Drawdown", Value: fmt.Sprintf("%.2f%%", snap.DrawdownPct*100)},
				{Label: "Exposure", Value: fmt.Sprintf("%.2f%%", snap.ExposurePct*100)},
			},
		}
		if err := p.alerter.Notify(ctx, alert); err != nil {
			p.logger.WarnContext(ctx, "risk alert failed",
				slog.String("user_id", pos.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Processor) appendEvent(ctx context.Context, ev domain.Event) {
	if p.events == nil {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = p.now().UTC()
	}
	if err := p.events.Append(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "event append failed",
			slog.String("type", ev.Type),
			slog.String("position_id", ev.PositionID),
			slog.String("error", err.Error()),
		)
	}
}
