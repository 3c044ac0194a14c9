package store

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
)

// BatchLoader writes output events to their destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// RecordingLoader records every conversion in the ledger once the wrapped
// loader has written its batch. A ledger failure is logged, not returned:
// the grids are already published.
type RecordingLoader struct {
	next   BatchLoader
	ledger *Ledger
	logger *slog.Logger
}

// NewRecordingLoader wraps next so successful writes are recorded in ledger.
func NewRecordingLoader(next BatchLoader, ledger *Ledger, logger *slog.Logger) *RecordingLoader {
	return &RecordingLoader{next: next, ledger: ledger, logger: logger}
}

func (r *RecordingLoader) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if err := r.next.LoadBatch(ctx, events); err != nil {
		return err
	}
	for _, ev := range events {
		if ev.Result == nil {
			continue
		}
		entry, err := r.ledger.Record(ctx, *ev.Result)
		if err != nil {
			r.logger.Warn("record conversion failed", "error", err, "digest", ev.Result.Digest)
			continue
		}
		r.logger.Debug("conversion recorded", "digest", entry.Digest, "run_id", entry.RunID)
	}
	return nil
}
