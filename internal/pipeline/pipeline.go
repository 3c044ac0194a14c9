package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
	"github.com/couchcryptid/wxprofiler-etl/internal/observability"
)

// BatchExtractor reads up to batchSize conversion jobs from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a conversion job message into a serialized grid.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple serialized grids to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// unknownInstrument labels grids whose job did not name an instrument.
const unknownInstrument = "unknown"

// Pipeline consumes conversion jobs, converts each into a grid and publishes
// the grids. A job's offset is committed once its grid is published or once
// the job is known to be unconvertible.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness reports an error until the first grid has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published a grid yet")
	}
	return nil
}

// Run consumes jobs until ctx is cancelled. Broker errors are retried with
// a capped exponential delay and never end the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	delay := newRetryDelay(200*time.Millisecond, 5*time.Second)
	for ctx.Err() == nil {
		if err := p.step(ctx); err != nil {
			p.logger.Error("pipeline step failed", "error", err, "retry_in", delay.current)
			if !delay.wait(ctx) {
				break
			}
			continue
		}
		delay.reset()
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// step handles one batch of jobs. A non-nil error means the batch must be
// retried; nothing from it has been committed except skipped jobs.
func (p *Pipeline) step(ctx context.Context) error {
	start := time.Now()

	jobs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	p.metrics.JobsConsumed.Add(float64(len(jobs)))
	p.metrics.BatchSize.Observe(float64(len(jobs)))

	grids := make([]domain.OutputEvent, 0, len(jobs))
	pending := make([]domain.RawEvent, 0, len(jobs))
	for _, job := range jobs {
		grid, err := p.transformer.Transform(ctx, job)
		if err != nil {
			p.skip(ctx, job, err)
			continue
		}
		grids = append(grids, grid)
		pending = append(pending, job)
	}
	if len(grids) == 0 {
		return nil
	}

	if err := p.loader.LoadBatch(ctx, grids); err != nil {
		return err
	}
	p.recordPublished(grids)
	for _, job := range pending {
		p.commit(ctx, job)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

// skip commits a job that will never produce a grid. Jobs whose inputs were
// already converted are expected and do not count as conversion errors.
func (p *Pipeline) skip(ctx context.Context, job domain.RawEvent, err error) {
	attrs := []any{"error", err, "topic", job.Topic, "partition", job.Partition, "offset", job.Offset}
	if errors.Is(err, domain.ErrDuplicateJob) {
		p.logger.Info("inputs already converted, skipping job", attrs...)
	} else {
		p.logger.Warn("conversion failed, skipping job", attrs...)
		p.metrics.ConversionErrors.Inc()
	}
	p.commit(ctx, job)
}

func (p *Pipeline) recordPublished(grids []domain.OutputEvent) {
	for _, g := range grids {
		p.metrics.GridsProduced.WithLabelValues(instrumentOf(g)).Inc()
	}
}

func instrumentOf(g domain.OutputEvent) string {
	if g.Result != nil && g.Result.Instrument != "" {
		return string(g.Result.Instrument)
	}
	return unknownInstrument
}

func (p *Pipeline) commit(ctx context.Context, job domain.RawEvent) {
	if job.Commit == nil {
		return
	}
	if err := job.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", job.Topic, "partition", job.Partition, "offset", job.Offset)
	}
}

// retryDelay doubles from initial up to max between consecutive failures.
type retryDelay struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newRetryDelay(initial, maxDelay time.Duration) *retryDelay {
	return &retryDelay{initial: initial, max: maxDelay, current: initial}
}

func (d *retryDelay) reset() { d.current = d.initial }

// wait sleeps for the current delay and advances it. It returns false if ctx
// ends first.
func (d *retryDelay) wait(ctx context.Context) bool {
	timer := time.NewTimer(d.current)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	d.current = min(d.current*2, d.max)
	return true
}
