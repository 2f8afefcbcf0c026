package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/wofost-input-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	msgs      []kafkago.Message
	err       error
	committed []kafkago.Message
	closed    bool
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if f.err != nil {
		return kafkago.Message{}, f.err
	}
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	written []kafkago.Message
	err     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("job-1"),
		Value:     []byte(`{"type":"weather"}`),
		Topic:     "wofost-input-jobs",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("era5")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("job-1"), raw.Key)
	assert.JSONEq(t, `{"type":"weather"}`, string(raw.Value))
	assert.Equal(t, "wofost-input-jobs", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "era5", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestReader_ExtractBatch_FillsBatch(t *testing.T) {
	fetcher := &fakeFetcher{msgs: []kafkago.Message{
		{Key: []byte("a"), Offset: 1},
		{Key: []byte("b"), Offset: 2},
		{Key: []byte("c"), Offset: 3},
	}}
	r := newReader(fetcher, time.Second, discardLogger())

	batch, err := r.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []byte("a"), batch[0].Key)
	assert.Equal(t, []byte("b"), batch[1].Key)

	require.NotNil(t, batch[1].Commit)
	require.NoError(t, batch[1].Commit(context.Background()))
	require.Len(t, fetcher.committed, 1)
	assert.Equal(t, int64(2), fetcher.committed[0].Offset)
}

func TestReader_ExtractBatch_FlushIntervalReturnsPartialBatch(t *testing.T) {
	fetcher := &fakeFetcher{msgs: []kafkago.Message{{Key: []byte("only")}}}
	r := newReader(fetcher, 20*time.Millisecond, discardLogger())

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, []byte("only"), batch[0].Key)
}

func TestReader_ExtractBatch_EmptyAfterFlushInterval(t *testing.T) {
	r := newReader(&fakeFetcher{}, 10*time.Millisecond, discardLogger())

	batch, err := r.ExtractBatch(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestReader_ExtractBatch_ParentCancelled(t *testing.T) {
	r := newReader(&fakeFetcher{}, time.Second, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ExtractBatch(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReader_ExtractBatch_FetchError(t *testing.T) {
	r := newReader(&fakeFetcher{err: errors.New("broker unreachable")}, time.Second, discardLogger())

	_, err := r.ExtractBatch(context.Background(), 5)
	assert.EqualError(t, err, "broker unreachable")
}

func TestReader_Close(t *testing.T) {
	fetcher := &fakeFetcher{}
	r := newReader(fetcher, time.Second, discardLogger())
	require.NoError(t, r.Close())
	assert.True(t, fetcher.closed)
}

func TestToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("weather-1a2b"),
		Value: []byte(`{"job_id":"weather-1a2b"}`),
		Headers: map[string]string{
			"processed_at": "2024-04-26T15:10:00Z",
			"job_type":     "weather",
		},
	}

	msg := toMessage(event)

	assert.Equal(t, []byte("weather-1a2b"), msg.Key)
	assert.JSONEq(t, `{"job_id":"weather-1a2b"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "job_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("weather"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[1].Value)
}

func TestWriter_LoadBatch(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, logger: discardLogger()}

	require.NoError(t, w.LoadBatch(context.Background(), nil))
	assert.Empty(t, fw.written)

	events := []domain.OutputEvent{
		{Key: []byte("a"), Value: []byte("{}")},
		{Key: []byte("b"), Value: []byte("{}")},
	}
	require.NoError(t, w.LoadBatch(context.Background(), events))
	require.Len(t, fw.written, 2)
	assert.Equal(t, []byte("b"), fw.written[1].Key)
}

func TestWriter_LoadBatch_Error(t *testing.T) {
	w := &Writer{writer: &fakeWriter{err: errors.New("leader not available")}, logger: discardLogger()}
	err := w.LoadBatch(context.Background(), []domain.OutputEvent{{Key: []byte("a")}})
	assert.EqualError(t, err, "leader not available")
}
