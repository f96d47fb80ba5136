package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// archiveBatchSize caps how many event rows one archive object holds.
const archiveBatchSize = 5000

// Archiver moves event-log rows past the retention window into cold storage.
// Each batch is serialized as gzipped JSON lines and uploaded before the
// rows are deleted, so a failed upload never loses events.
type Archiver struct {
	writer domain.BlobWriter
	events domain.EventStore
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates an Archiver writing under the given key prefix.
func NewArchiver(writer domain.BlobWriter, events domain.EventStore, prefix string, logger *slog.Logger) *Archiver {
	if prefix == "" {
		prefix = "events"
	}
	return &Archiver{
		writer: writer,
		events: events,
		prefix: prefix,
		logger: logger.With(slog.String("component", "archiver")),
		now:    time.Now,
	}
}

// ArchiveBefore uploads all events older than cutoff and deletes them from
// the store. It returns the number of archived rows.
func (a *Archiver) ArchiveBefore(ctx context.Context, cutoff time.Time) (int, error) {
	archived := 0
	for {
		events, err := a.events.ListBefore(ctx, cutoff, archiveBatchSize)
		if err != nil {
			return archived, fmt.Errorf("s3blob: list events for archive: %w", err)
		}
		if len(events) == 0 {
			break
		}

		key := a.batchKey(events)
		data, err := encodeBatch(events)
		if err != nil {
			return archived, fmt.Errorf("s3blob: encode archive batch: %w", err)
		}

		if err := a.writer.Write(ctx, key, data, "application/gzip"); err != nil {
			return archived, fmt.Errorf("s3blob: upload archive batch: %w", err)
		}

		// Delete exactly the uploaded rows, keyed by the batch's last row.
		// A timestamp-only cutoff could drop rows that share the final
		// created_at but land in the next batch.
		last := events[len(events)-1]
		deleted, err := a.events.DeleteArchived(ctx, last.CreatedAt, last.ID)
		if err != nil {
			return archived, fmt.Errorf("s3blob: prune archived events: %w", err)
		}

		archived += len(events)
		a.logger.InfoContext(ctx, "event batch archived",
			slog.String("key", key),
			slog.Int("events", len(events)),
			slog.Int64("deleted", deleted),
		)

		if len(events) < archiveBatchSize {
			break
		}
	}
	return archived, nil
}

func (a *Archiver) batchKey(events []domain.Event) string {
	first := events[0].CreatedAt.UTC()
	last := events[len(events)-1].CreatedAt.UTC()
	return fmt.Sprintf("%s/%s/%s_%s.jsonl.gz",
		a.prefix,
		first.Format("2006/01/02"),
		first.Format("150405"),
		last.Format("150405"),
	)
}

func encodeBatch(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return nil, err
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
