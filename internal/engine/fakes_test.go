package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
	"github.com/rwallach/sentinel/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePositions struct {
	mu      sync.Mutex
	open    []domain.Position
	listErr error
	markErr error

	updates []domain.Position
	marked  map[string]string // id -> reason
}

func newFakePositions(open ...domain.Position) *fakePositions {
	return &fakePositions{open: open, marked: map[string]string{}}
}

func (f *fakePositions) ListOpen(_ context.Context, limit int) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && limit < len(f.open) {
		return append([]domain.Position(nil), f.open[:limit]...), nil
	}
	return append([]domain.Position(nil), f.open...), nil
}

func (f *fakePositions) GetByID(_ context.Context, id string) (domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.open {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Position{}, domain.ErrNotFound
}

func (f *fakePositions) Update(_ context.Context, pos domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, pos)
	return nil
}

func (f *fakePositions) MarkClosing(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	if _, done := f.marked[id]; done {
		return domain.ErrPositionNotOpen
	}
	f.marked[id] = reason
	return nil
}

func (f *fakePositions) lastUpdate() (domain.Position, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return domain.Position{}, false
	}
	return f.updates[len(f.updates)-1], true
}

type fakeTrades struct {
	trades []domain.Trade
	err    error
}

func (f *fakeTrades) ListByUser(context.Context, string) ([]domain.Trade, error) {
	return f.trades, f.err
}

type fakeAccounts struct {
	mu      sync.Mutex
	account domain.RiskAccount
	err     error
	peaks   []float64
}

func (f *fakeAccounts) GetByUser(context.Context, string) (domain.RiskAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, f.err
}

func (f *fakeAccounts) UpdatePeak(_ context.Context, _ string, peak float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peaks = append(f.peaks, peak)
	return nil
}

type fakeLimits struct {
	limits domain.RiskLimits
	err    error
}

func (f *fakeLimits) GetByUser(context.Context, string) (domain.RiskLimits, error) {
	return f.limits, f.err
}

type fakeKillSwitches struct {
	mu          sync.Mutex
	state       *domain.KillSwitchState
	deactivated []string
}

func (f *fakeKillSwitches) Find(context.Context, string, string, string) (*domain.KillSwitchState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeKillSwitches) Upsert(_ context.Context, state domain.KillSwitchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = &state
	return nil
}

func (f *fakeKillSwitches) Deactivate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, id)
	if f.state != nil && f.state.ID == id {
		cleared := *f.state
		cleared.Active = false
		f.state = &cleared
	}
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeEvents) Append(_ context.Context, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) List(context.Context, domain.ListOpts) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...), nil
}

func (f *fakeEvents) ListBefore(context.Context, time.Time, int) ([]domain.Event, error) {
	return nil, nil
}

func (f *fakeEvents) DeleteArchived(context.Context, time.Time, int64) (int64, error) {
	return 0, nil
}

func (f *fakeEvents) ofType(t string) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Event
	for _, ev := range f.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (f *fakeAlerter) Notify(_ context.Context, a notify.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeAlerter) ofEvent(event string) []notify.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Alert
	for _, a := range f.alerts {
		if a.Event == event {
			out = append(out, a)
		}
	}
	return out
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: map[string][][]byte{},
		streamed:  map[string][][]byte{},
	}
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

func (f *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamed[stream] = append(f.streamed[stream], payload)
	return nil
}

type fakeQuoter struct {
	prices map[string]float64
	err    error
}

func (f *fakeQuoter) Quote(_ context.Context, symbol, _ string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return 0, domain.ErrPriceUnavailable
	}
	return price, nil
}
