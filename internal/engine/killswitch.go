package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rwallach/sentinel/internal/domain"
	"github.com/rwallach/sentinel/internal/notify"
)

// KillSwitchAdmin exposes the trigger and reset operations for kill switches.
// Operators reach it through the kill-trigger and kill-reset modes; the
// Processor uses Trigger to arm automatic switches on a daily loss breach.
type KillSwitchAdmin struct {
	store   domain.KillSwitchStore
	events  domain.EventStore
	alerter Alerter
	logger  *slog.Logger
	now     func() time.Time
}

// NewKillSwitchAdmin creates the admin. A nil alerter disables operator
// notifications.
func NewKillSwitchAdmin(store domain.KillSwitchStore, events domain.EventStore, alerter Alerter, logger *slog.Logger) *KillSwitchAdmin {
	return &KillSwitchAdmin{
		store:   store,
		events:  events,
		alerter: alerter,
		logger:  logger.With(slog.String("component", "killswitch_admin")),
		now:     time.Now,
	}
}

// TriggerParams describes a kill switch to activate. Empty scope fields
// widen the switch; all empty means system-wide.
type TriggerParams struct {
	UserID    string
	Exchange  string
	Symbol    string
	Trigger   domain.KillSwitchTrigger
	Reason    string
	Cooldown  time.Duration
	TriggerBy string // operator identifier for the audit trail
}

// Trigger activates a kill switch for the given scope. An automatic trigger
// with a cooldown gets an expiry; manual and admin triggers stay active
// until reset.
func (a *KillSwitchAdmin) Trigger(ctx context.Context, params TriggerParams) (domain.KillSwitchState, error) {
	now := a.now().UTC()
	state := domain.KillSwitchState{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		Exchange:    params.Exchange,
		Symbol:      params.Symbol,
		Active:      true,
		TriggeredBy: params.Trigger,
		Reason:      params.Reason,
		Cooldown:    params.Cooldown,
		TriggeredAt: now,
	}
	if params.Trigger == domain.KillSwitchAutomatic && params.Cooldown > 0 {
		expiry := now.Add(params.Cooldown)
		state.ExpiresAt = &expiry
	}

	if err := a.store.Upsert(ctx, state); err != nil {
		return domain.KillSwitchState{}, fmt.Errorf("engine: trigger kill switch: %w", err)
	}

	a.logger.InfoContext(ctx, "kill switch triggered",
		slog.String("kill_switch_id", state.ID),
		slog.String("user_id", state.UserID),
		slog.String("exchange", state.Exchange),
		slog.String("symbol", state.Symbol),
		slog.String("triggered_by", string(state.TriggeredBy)),
	)
	a.appendEvent(ctx, domain.Event{
		UserID: state.UserID,
		Type:   domain.EventKillSwitchTripped,
		Reason: state.Reason,
		Detail: map[string]any{
			"kill_switch_id": state.ID,
			"triggered_by":   string(state.TriggeredBy),
			"operator":       params.TriggerBy,
			"exchange":       state.Exchange,
			"symbol":         state.Symbol,
		},
	})
	a.notifyTripped(ctx, state)
	return state, nil
}

// notifyTripped fans the trip out to operator channels. Trading is already
// halted by the upsert, so a delivery failure only gets logged.
func (a *KillSwitchAdmin) notifyTripped(ctx context.Context, state domain.KillSwitchState) {
	if a.alerter == nil {
		return
	}
	alert := notify.Alert{
		Event: domain.EventKillSwitchTripped,
		Title: fmt.Sprintf("Kill switch tripped: %s", scopeLabel(state)),
		Body:  state.Reason,
		Fields: []notify.Field{
			{Label: "Scope", Value: scopeLabel(state)},
			{Label: "Triggered by", Value: string(state.TriggeredBy)},
		},
	}
	if state.ExpiresAt != nil {
		alert.Fields = append(alert.Fields, notify.Field{
			Label: "Expires", Value: state.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	if err := a.alerter.Notify(ctx, alert); err != nil {
		a.logger.WarnContext(ctx, "kill switch alert failed",
			slog.String("kill_switch_id", state.ID),
			slog.String("error", err.Error()),
		)
	}
}

// scopeLabel renders the switch scope for operator alerts. Empty fields mean
// a wider scope, all empty means system-wide.
func scopeLabel(state domain.KillSwitchState) string {
	parts := []string{state.UserID, state.Exchange, state.Symbol}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "system-wide"
	}
	return strings.Join(out, "/")
}

// Reset deactivates the kill switch covering the given scope. A switch
// tripped automatically cannot be reset before its cooldown expires.
func (a *KillSwitchAdmin) Reset(ctx context.Context, userID, exchange, symbol string) error {
	now := a.now().UTC()

	state, err := a.store.Find(ctx, userID, exchange, symbol)
	if err != nil {
		return fmt.Errorf("engine: find kill switch: %w", err)
	}
	if state == nil || !state.Active {
		return domain.ErrNotFound
	}
	if !state.CanReset(now) {
		return fmt.Errorf("engine: kill switch %s: %w", state.ID, domain.ErrKillSwitchCooldown)
	}

	if err := a.store.Deactivate(ctx, state.ID); err != nil {
		return fmt.Errorf("engine: reset kill switch: %w", err)
	}

	a.logger.InfoContext(ctx, "kill switch reset",
		slog.String("kill_switch_id", state.ID),
		slog.String("user_id", state.UserID),
	)
	a.appendEvent(ctx, domain.Event{
		UserID: state.UserID,
		Type:   domain.EventKillSwitchReset,
		Reason: "operator reset",
		Detail: map[string]any{"kill_switch_id": state.ID},
	})
	return nil
}

func (a *KillSwitchAdmin) appendEvent(ctx context.Context, ev domain.Event) {
	if a.events == nil {
		return
	}
	ev.CreatedAt = a.now().UTC()
	if err := a.events.Append(ctx, ev); err != nil {
		a.logger.WarnContext(ctx, "event append failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
