package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationJob_Metadata(t *testing.T) {
	opts := DefaultEncodeOptions()

	meta := StationJob{Year: 2012, Latitude: 30.5, Longitude: 110}.Metadata(opts)
	assert.Equal(t, StationMetadata{
		Year: 2012, Latitude: 30.5, Longitude: 110,
		Elevation: 50, Source: "ERA5", Author: "cabo-etl",
	}, meta)

	elevation := 812.0
	meta = StationJob{Year: 2012, Latitude: 30.5, Longitude: 110, Elevation: &elevation, Source: "AgERA5", Author: "ops"}.Metadata(opts)
	assert.InDelta(t, 812.0, meta.Elevation, 0)
	assert.Equal(t, "AgERA5", meta.Source)
	assert.Equal(t, "ops", meta.Author)
}

func TestSerializeJobResult(t *testing.T) {
	freezeClock(t)

	out, err := SerializeJobResult(JobResult{
		JobID:    "weather-1",
		Type:     JobTypeWeather,
		FileBase: "out/cell",
		Path:     "out/cell.012",
		Year:     2012,
		Rows:     366,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("weather-1"), out.Key)
	assert.Equal(t, "weather", out.Headers["job_type"])
	assert.Equal(t, "2024-04-26T15:10:00Z", out.Headers["processed_at"])

	var got JobResult
	require.NoError(t, json.Unmarshal(out.Value, &got))
	assert.Equal(t, frozenNow, got.ProcessedAt)
	assert.Equal(t, 366, got.Rows)
	assert.NotContains(t, string(out.Value), "archive_key")
}

func TestSerializeJobResult_KeepsProcessedAt(t *testing.T) {
	at := time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC)
	out, err := SerializeJobResult(JobResult{JobID: "x", Type: JobTypeCalendar, ProcessedAt: at})
	require.NoError(t, err)
	assert.Equal(t, "2020-01-02T03:04:05Z", out.Headers["processed_at"])
}

func TestJobID(t *testing.T) {
	payload := []byte(`{"type":"weather"}`)

	assert.Equal(t, "given", JobID(Job{ID: "given"}, payload))

	derived := JobID(Job{Type: JobTypeWeather}, payload)
	assert.True(t, strings.HasPrefix(derived, "weather-"))
	assert.Len(t, derived, len("weather-")+16)
	assert.Equal(t, derived, JobID(Job{Type: JobTypeWeather}, payload), "stable for the same payload")
	assert.NotEqual(t, derived, JobID(Job{Type: JobTypeWeather}, []byte(`{"type":"weather" }`)))

	assert.Len(t, JobID(Job{}, payload), 16)
}
