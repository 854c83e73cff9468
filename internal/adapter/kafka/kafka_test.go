package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

type mockMessageWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (m *mockMessageWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockMessageWriter) Close() error {
	m.closed = true
	return nil
}

func testSummary() domain.SwathSummary {
	return domain.SwathSummary{
		RunID:     "run-1",
		StormID:   "al152017",
		StormName: "MARIA",
		TimeMin:   time.Date(2017, 9, 19, 18, 0, 0, 0, time.UTC),
		TimeMax:   time.Date(2017, 9, 21, 0, 0, 0, 0, time.UTC),
		Steps:     6,
		NLat:      11,
		NLon:      21,
		PeakWind:  77.1666,
		PeakTime:  time.Date(2017, 9, 20, 6, 0, 0, 0, time.UTC),
		Peak:      domain.Point{Lat: 18.1, Lon: -65.9},
		CreatedAt: time.Date(2017, 9, 21, 1, 0, 0, 0, time.UTC),
	}
}

func testWriter(mw messageWriter) *Writer {
	return &Writer{writer: mw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testSummary())
	require.NoError(t, err)

	assert.Equal(t, []byte("run-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"storm_name":"MARIA"`)
	assert.Contains(t, string(msg.Value), `"steps":6`)
	assert.NotContains(t, string(msg.Value), "place_name")
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "storm_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("al152017"), msg.Headers[0].Value)
	assert.Equal(t, "created_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2017-09-21T01:00:00Z"), msg.Headers[1].Value)

	var decoded domain.SwathSummary
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, testSummary(), decoded)
}

func TestSerializeToMessage_NaN(t *testing.T) {
	s := testSummary()
	s.PeakWind = math.NaN()
	_, err := serializeToMessage(s)
	require.Error(t, err)
}

func TestWriter_PublishSummary(t *testing.T) {
	mw := &mockMessageWriter{}
	require.NoError(t, testWriter(mw).PublishSummary(context.Background(), testSummary()))
	require.Len(t, mw.msgs, 1)
	assert.Equal(t, []byte("run-1"), mw.msgs[0].Key)
}

func TestWriter_PublishSummary_Error(t *testing.T) {
	mw := &mockMessageWriter{err: errors.New("broker down")}
	err := testWriter(mw).PublishSummary(context.Background(), testSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-1")
	assert.Contains(t, err.Error(), "broker down")
}

func TestWriter_Close(t *testing.T) {
	mw := &mockMessageWriter{}
	require.NoError(t, testWriter(mw).Close())
	assert.True(t, mw.closed)
}
