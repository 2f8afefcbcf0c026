package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/wofost-input-etl/internal/agro"
	"github.com/couchcryptid/wofost-input-etl/internal/domain"
	"github.com/couchcryptid/wofost-input-etl/internal/observability"
	"github.com/couchcryptid/wofost-input-etl/internal/storage"
)

const (
	caboContentType = "text/plain; charset=utf-8"
	amgtContentType = "application/yaml"
	amgtExtension   = ".amgt"
)

// JobTransformer implements Transformer. It runs a weather or calendar job,
// writes the artifact to the file sink and, when an archiver is set, keeps
// a copy there too.
type JobTransformer struct {
	sink     *storage.FileSink
	archiver storage.Archiver
	opts     domain.EncodeOptions
	policy   domain.LeapDayPolicy
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a JobTransformer. Pass a nil archiver to disable archiving.
func NewTransformer(sink *storage.FileSink, archiver storage.Archiver, opts domain.EncodeOptions, policy domain.LeapDayPolicy, metrics *observability.Metrics, logger *slog.Logger) *JobTransformer {
	return &JobTransformer{
		sink:     sink,
		archiver: archiver,
		opts:     opts,
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
	}
}

func (t *JobTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	job, err := decodeJob(raw.Value)
	if err != nil {
		t.metrics.JobsProcessed.WithLabelValues("unknown", "invalid").Inc()
		return domain.OutputEvent{}, err
	}
	id := domain.JobID(job, raw.Value)

	start := time.Now()
	var result domain.JobResult
	switch job.Type {
	case domain.JobTypeWeather:
		result, err = t.runWeather(ctx, job)
	case domain.JobTypeCalendar:
		result, err = t.runCalendar(ctx, job)
	default:
		err = fmt.Errorf("%w: unknown job type %q", domain.ErrValidation, job.Type)
	}
	if err != nil {
		t.metrics.JobsProcessed.WithLabelValues(job.Type, outcome(err)).Inc()
		return domain.OutputEvent{}, fmt.Errorf("job %s: %w", id, err)
	}
	t.metrics.JobDuration.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())
	t.metrics.JobsProcessed.WithLabelValues(job.Type, "success").Inc()

	result.JobID = id
	result.Type = job.Type
	t.logger.Info("job completed",
		"job_id", id,
		"type", job.Type,
		"path", result.Path,
		"year", result.Year,
	)
	return domain.SerializeJobResult(result)
}

func (t *JobTransformer) runWeather(ctx context.Context, job domain.Job) (domain.JobResult, error) {
	meta := job.Station.Metadata(t.opts)
	series := *job.Series

	data, err := storage.EncodeCABOBytes(meta, series, t.opts)
	if err != nil {
		return domain.JobResult{}, err
	}

	base := job.FileBase
	if base == "" {
		base = domain.DefaultFileBase(meta.Latitude, meta.Longitude)
	}
	name := domain.CABOFileName(base, meta.Year)
	path, err := t.sink.Write(name, data)
	if err != nil {
		return domain.JobResult{}, err
	}
	t.metrics.CABORowsWritten.Add(float64(series.Len()))

	return domain.JobResult{
		FileBase:   filepath.Join(t.sink.Dir(), base),
		Path:       path,
		Year:       meta.Year,
		Rows:       series.Len(),
		ArchiveKey: t.archive(ctx, name, data, caboContentType),
	}, nil
}

func (t *JobTransformer) runCalendar(ctx context.Context, job domain.Job) (domain.JobResult, error) {
	doc, err := agro.Decode(strings.NewReader(job.Agromanagement))
	if err != nil {
		return domain.JobResult{}, err
	}
	shifted, err := agro.Shift(doc, job.TargetYear, t.policy, job.FirstOnly)
	if err != nil {
		return domain.JobResult{}, err
	}

	var buf bytes.Buffer
	if err := agro.Encode(&buf, shifted); err != nil {
		return domain.JobResult{}, err
	}
	data := buf.Bytes()

	name := job.FileBase
	if filepath.Ext(name) == "" {
		name += amgtExtension
	}
	path, err := t.sink.Write(name, data)
	if err != nil {
		return domain.JobResult{}, err
	}

	return domain.JobResult{
		FileBase:       filepath.Join(t.sink.Dir(), job.FileBase),
		Path:           path,
		Year:           job.TargetYear,
		Campaigns:      len(shifted.Campaigns),
		Agromanagement: string(data),
		ArchiveKey:     t.archive(ctx, name, data, amgtContentType),
	}, nil
}

// archive uploads a copy of the artifact. The local file is the product;
// a failed upload is logged and counted but does not fail the job.
func (t *JobTransformer) archive(ctx context.Context, name string, data []byte, contentType string) string {
	if t.archiver == nil {
		return ""
	}
	key, err := t.archiver.Archive(ctx, name, data, contentType)
	if err != nil {
		t.logger.Warn("archive upload failed", "name", name, "error", err)
		t.metrics.ArchiveUploads.WithLabelValues("error").Inc()
		return ""
	}
	t.metrics.ArchiveUploads.WithLabelValues("success").Inc()
	return key
}

// outcome labels a job failure: bad input is "invalid", anything else "error".
func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrSchema),
		errors.Is(err, domain.ErrCalendar):
		return "invalid"
	default:
		return "error"
	}
}
