package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/wofost-input-etl/internal/domain"
	"github.com/couchcryptid/wofost-input-etl/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw job messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer runs one job and describes its result as an output event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-transform-load loop.
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
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Ready reports whether the last poll of the source succeeded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once the pipeline has polled the source
// successfully. Jobs arrive rarely, so an idle pipeline is still ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not reached the job source yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	bo := newBackOff()
	for ctx.Err() == nil {
		if !p.step(ctx, bo) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// newBackOff doubles from 200ms up to 5s and never gives up.
func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxInterval = maxBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// step polls the source once and handles whatever it returned. It returns
// false when the pipeline should stop.
func (p *Pipeline) step(ctx context.Context, bo *backoff.ExponentialBackOff) bool {
	start := time.Now()

	jobs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.ready.Store(false)
		wait := bo.NextBackOff()
		p.logger.Error("extract batch failed", "error", err, "retry_in", wait)
		return retry.SleepWithContext(ctx, wait)
	}
	p.ready.Store(true)
	bo.Reset()
	if len(jobs) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(jobs)))
	p.metrics.BatchSize.Observe(float64(len(jobs)))

	results, done := p.runJobs(ctx, jobs)
	if len(results) == 0 {
		return true
	}

	// The reader has already moved past these messages, so the results are
	// retried in place; polling on would commit past them.
	if !p.load(ctx, results) {
		return false
	}
	for _, raw := range done {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug("batch loaded",
		"jobs", len(jobs),
		"results", len(results),
		"skipped", len(jobs)-len(results),
		"duration", time.Since(start),
	)
	return true
}

// load writes results to the sink, retrying with backoff until it succeeds.
// It returns false only when ctx ends first.
func (p *Pipeline) load(ctx context.Context, results []domain.OutputEvent) bool {
	op := func() error {
		return p.loader.LoadBatch(ctx, results)
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(results), "retry_in", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(newBackOff(), ctx), notify); err != nil {
		p.logger.Warn("load batch abandoned", "error", err, "batch_size", len(results))
		return false
	}
	p.metrics.MessagesProduced.Add(float64(len(results)))
	return true
}

// runJobs transforms every message of the batch. A failed job is logged,
// counted and committed right away: its input is wrong, and running it
// again would fail the same way. The successful messages are returned next
// to their results so they can be committed after the load.
func (p *Pipeline) runJobs(ctx context.Context, jobs []domain.RawEvent) ([]domain.OutputEvent, []domain.RawEvent) {
	results := make([]domain.OutputEvent, 0, len(jobs))
	done := make([]domain.RawEvent, 0, len(jobs))

	for _, raw := range jobs {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("job failed, skipping message",
				"error", err,
				"key", string(raw.Key),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		results = append(results, out)
		done = append(done, raw)
	}
	return results, done
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
