package notify

import "github.com/rwallach/sentinel/internal/domain"

// Alert is one operator-facing notification. Event carries the engine event
// type ("close_triggered", "kill_switch_tripped", "risk_alert") and drives
// both the notifier's filter and each channel's formatting; Fields hold the
// structured payload (symbol, close reason, PnL) so senders can render them
// natively instead of flattening everything into one string.
type Alert struct {
	Event  string
	Title  string
	Body   string
	Fields []Field
}

// Field is one labeled value inside an alert.
type Field struct {
	Label string
	Value string
}

// tag returns the short channel label shown next to the title for each
// event type.
func (a Alert) tag() string {
	switch a.Event {
	case domain.EventCloseTriggered:
		return "CLOSE"
	case domain.EventKillSwitchTripped:
		return "KILL SWITCH"
	case domain.EventKillSwitchReset:
		return "RESET"
	case domain.EventRiskAlert:
		return "RISK"
	default:
		return "INFO"
	}
}
