package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Job types carried in the "type" field of a job message.
const (
	JobTypeWeather  = "weather"
	JobTypeCalendar = "calendar"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Job is a request to prepare one simulation input. A weather job carries a
// grid cell's daily series; a calendar job carries an agromanagement
// document to move to another year. Weather jobs without a file base are
// named after their grid cell.
type Job struct {
	Type     string `json:"type" validate:"required,oneof=weather calendar"`
	ID       string `json:"job_id,omitempty" validate:"omitempty,max=128"`
	FileBase string `json:"file_base,omitempty" validate:"required_if=Type calendar,max=255"`

	Station *StationJob       `json:"station,omitempty" validate:"required_if=Type weather"`
	Series  *WeatherDaySeries `json:"series,omitempty" validate:"required_if=Type weather"`

	TargetYear     int    `json:"target_year,omitempty" validate:"required_if=Type calendar"`
	Agromanagement string `json:"agromanagement,omitempty" validate:"required_if=Type calendar"`
	FirstOnly      bool   `json:"first_only,omitempty"`
}

// StationJob is the station block of a weather job. Unset elevation,
// source and author fall back to the encoder options.
type StationJob struct {
	Year      int      `json:"year" validate:"gte=1000,lte=9999"`
	Latitude  float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64  `json:"longitude" validate:"gte=-180,lte=360"`
	Elevation *float64 `json:"elevation,omitempty"`
	Source    string   `json:"source,omitempty"`
	Author    string   `json:"author,omitempty"`
}

// Metadata resolves the station block against the encoder defaults.
func (s StationJob) Metadata(opts EncodeOptions) StationMetadata {
	meta := NewStationMetadata(s.Year, s.Latitude, s.Longitude, opts)
	if s.Elevation != nil {
		meta.Elevation = *s.Elevation
	}
	if s.Source != "" {
		meta.Source = s.Source
	}
	if s.Author != "" {
		meta.Author = s.Author
	}
	return meta
}

// JobResult describes the artifact a job produced.
type JobResult struct {
	JobID          string    `json:"job_id"`
	Type           string    `json:"type"`
	FileBase       string    `json:"file_base"`
	Path           string    `json:"path"`
	Year           int       `json:"year"`
	Rows           int       `json:"rows,omitempty"`
	Campaigns      int       `json:"campaigns,omitempty"`
	Agromanagement string    `json:"agromanagement,omitempty"`
	ArchiveKey     string    `json:"archive_key,omitempty"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeJobResult stamps the result with the processing time and
// marshals it into an OutputEvent keyed by job ID.
func SerializeJobResult(result JobResult) (OutputEvent, error) {
	if result.ProcessedAt.IsZero() {
		result.ProcessedAt = clock.Now().UTC()
	}
	data, err := json.Marshal(result)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize job result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(result.JobID),
		Value: data,
		Headers: map[string]string{
			"job_type":     result.Type,
			"processed_at": result.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// JobID returns the job's own ID, or a deterministic one derived from the
// payload. Deterministic IDs make replays overwrite the same artifact
// instead of producing duplicates downstream.
func JobID(job Job, payload []byte) string {
	if job.ID != "" {
		return job.ID
	}
	hash := sha256.Sum256(payload)
	short := hex.EncodeToString(hash[:8])
	if job.Type == "" {
		return short
	}
	return job.Type + "-" + short
}
