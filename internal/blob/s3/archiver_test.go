package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwallach/sentinel/internal/domain"
)

// fakeEventStore keeps rows sorted by (created_at, id), matching the
// ordering the postgres store returns.
type fakeEventStore struct {
	events []domain.Event
}

func (f *fakeEventStore) Append(_ context.Context, ev domain.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEventStore) List(context.Context, domain.ListOpts) ([]domain.Event, error) {
	return nil, nil
}

func (f *fakeEventStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Event, error) {
	var out []domain.Event
	for _, ev := range f.events {
		if ev.CreatedAt.Before(cutoff) {
			out = append(out, ev)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeEventStore) DeleteArchived(_ context.Context, lastCreatedAt time.Time, lastID int64) (int64, error) {
	var kept []domain.Event
	var deleted int64
	for _, ev := range f.events {
		if ev.CreatedAt.Before(lastCreatedAt) ||
			(ev.CreatedAt.Equal(lastCreatedAt) && ev.ID <= lastID) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	f.events = kept
	return deleted, nil
}

type fakeWriter struct {
	objects map[string][]byte
	err     error
}

func (f *fakeWriter) Write(_ context.Context, key string, data []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBatch(t *testing.T, data []byte) []domain.Event {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	var events []domain.Event
	dec := json.NewDecoder(gz)
	for {
		var ev domain.Event
		if err := dec.Decode(&ev); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode archived event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestArchiveBeforeUploadsAndPrunes(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeEventStore{}
	for i := int64(1); i <= 3; i++ {
		store.events = append(store.events, domain.Event{
			ID:        i,
			UserID:    "u1",
			Type:      domain.EventPositionUpdated,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	writer := &fakeWriter{}

	arch := NewArchiver(writer, store, "events", testLogger())
	archived, err := arch.ArchiveBefore(context.Background(), base.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 3, archived)
	assert.Empty(t, store.events)
	require.Len(t, writer.objects, 1)
	for _, data := range writer.objects {
		assert.Len(t, decodeBatch(t, data), 3)
	}
}

// A created_at group split across the batch limit must survive the first
// batch's prune and land in the next upload instead of vanishing.
func TestArchiveBeforeSharedTimestampAtBatchBoundary(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	shared := base.Add(time.Duration(archiveBatchSize) * time.Second)

	store := &fakeEventStore{}
	total := int64(archiveBatchSize + 2)
	for i := int64(1); i <= total; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		// The last three rows share one timestamp; the batch limit cuts
		// the group after the first of them.
		if i >= total-2 {
			ts = shared
		}
		store.events = append(store.events, domain.Event{ID: i, CreatedAt: ts})
	}
	writer := &fakeWriter{}

	arch := NewArchiver(writer, store, "events", testLogger())
	archived, err := arch.ArchiveBefore(context.Background(), shared.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, int(total), archived)
	assert.Empty(t, store.events)
	require.Len(t, writer.objects, 2)

	seen := map[int64]int{}
	for _, data := range writer.objects {
		for _, ev := range decodeBatch(t, data) {
			seen[ev.ID]++
		}
	}
	require.Len(t, seen, int(total))
	for id, n := range seen {
		assert.Equalf(t, 1, n, "event %d uploaded %d times", id, n)
	}
}

func TestArchiveBeforeUploadFailureKeepsRows(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []domain.Event{
		{ID: 1, CreatedAt: base},
	}}
	writer := &fakeWriter{err: errors.New("bucket unavailable")}

	arch := NewArchiver(writer, store, "events", testLogger())
	archived, err := arch.ArchiveBefore(context.Background(), base.Add(time.Hour))

	require.Error(t, err)
	assert.Zero(t, archived)
	assert.Len(t, store.events, 1)
}

func TestArchiveBeforeNothingToArchive(t *testing.T) {
	arch := NewArchiver(&fakeWriter{}, &fakeEventStore{}, "events", testLogger())
	archived, err := arch.ArchiveBefore(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Zero(t, archived)
}
