package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
	"github.com/couchcryptid/wxprofiler-etl/internal/observability"
)

// JobLedger reports whether a job's inputs have already been converted.
type JobLedger interface {
	Seen(ctx context.Context, digest string) (bool, error)
}

// ConversionTransformer implements Transformer by running one conversion job
// per message. Pass a nil ledger to disable duplicate detection.
type ConversionTransformer struct {
	inputRoot string
	ledger    JobLedger
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
}

// NewTransformer creates a ConversionTransformer resolving job paths against
// inputRoot.
func NewTransformer(inputRoot string, ledger JobLedger, logger *slog.Logger, metrics *observability.Metrics) *ConversionTransformer {
	return &ConversionTransformer{
		inputRoot: inputRoot,
		ledger:    ledger,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
}

// SetClock replaces the clock that stamps processed_at on converted grids.
func (t *ConversionTransformer) SetClock(c clockwork.Clock) {
	t.clock = c
}

func (t *ConversionTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	job, err := domain.ParseJob(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	job = job.Resolve(t.inputRoot)

	inputs, err := domain.LoadJobInputs(job)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	digest := inputs.Digest(job)

	if t.ledger != nil {
		seen, err := t.ledger.Seen(ctx, digest)
		if err != nil {
			return domain.OutputEvent{}, fmt.Errorf("check ledger: %w", err)
		}
		if seen {
			t.metrics.DuplicateJobs.Inc()
			return domain.OutputEvent{}, fmt.Errorf("%w: %s", domain.ErrDuplicateJob, digest)
		}
	}

	start := t.clock.Now()
	grid, err := domain.ConvertJob(job, inputs, start)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.metrics.ConversionDuration.WithLabelValues(string(job.Instrument)).Observe(t.clock.Since(start).Seconds())

	for _, w := range grid.Warnings {
		t.logger.Warn("conversion degraded",
			"warning", w,
			"instrument", job.Instrument,
			"input", job.Input,
			"digest", digest,
		)
	}
	t.metrics.ConversionWarnings.WithLabelValues(string(job.Instrument)).Add(float64(len(grid.Warnings)))

	out, err := domain.SerializeGrid(grid, job, digest)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.logger.Debug("conversion complete",
		"instrument", job.Instrument,
		"digest", digest,
		"times", out.Result.Times,
		"ranges", out.Result.Ranges,
		"elapsed", t.clock.Since(start),
	)
	return out, nil
}
