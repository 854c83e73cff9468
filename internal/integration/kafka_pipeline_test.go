//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/storm-swath-service/internal/adapter/atcf"
	"github.com/couchcryptid/storm-swath-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-swath-service/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-swath-service/internal/domain"
	"github.com/couchcryptid/storm-swath-service/internal/observability"
	"github.com/couchcryptid/storm-swath-service/internal/pipeline"
)

const testTopic = "test-swaths"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("swath-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// publishedSummary holds a deserialized message read from the topic.
type publishedSummary struct {
	Summary domain.SwathSummary
	Key     string
	Headers map[string]string
}

func readSummary(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedSummary {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from summary topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var summary domain.SwathSummary
	require.NoError(t, json.Unmarshal(msg.Value, &summary), "unmarshal summary")
	return publishedSummary{Summary: summary, Key: string(msg.Key), Headers: headers}
}

// TestPipelineEndToEnd builds the Puerto Rico swath of Maria from the
// fixture track, writes it to NetCDF and publishes the summary to Kafka.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	region := domain.Region{MinLat: 17.5, MaxLat: 18.5, MinLon: -67.5, MaxLon: -65.5}
	grid, err := domain.NewRegionGrid(region, domain.Resolution{Lat: 0.1, Lon: 0.1})
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	logger := discardLogger()
	clock := clockwork.NewFakeClockAt(time.Date(2017, 9, 21, 3, 0, 0, 0, time.UTC))

	source := atcf.NewFileSource(filepath.Join("..", "pipeline", "testdata", "bal152017.dat"), logger, metrics)
	assembler := pipeline.NewAssembler(4, 30*time.Second, logger, metrics, clock)
	writer := netcdf.NewWriter(logger)
	publisher := kafka.NewWriter([]string{broker}, testTopic, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	p := pipeline.New(source, assembler, writer, publisher, nil, logger, metrics)
	summary, err := p.Run(ctx, pipeline.Job{Grid: grid, OutputDir: t.TempDir()})
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readSummary(ctx, t, consumer)
	assert.Equal(t, summary.RunID, got.Key)
	assert.Equal(t, "al152017", got.Headers["storm_id"])
	assert.Equal(t, "2017-09-21T03:00:00Z", got.Headers["created_at"])
	assert.Equal(t, summary, got.Summary)

	ds, err := netcdf.Read(summary.OutputPath)
	require.NoError(t, err)
	nt, nLat, nLon := ds.Field().Shape()
	assert.Equal(t, [3]int{6, 11, 21}, [3]int{nt, nLat, nLon})
	assert.InDelta(t, summary.PeakWind, ds.Field().Max(), 1e-9)
	assert.Equal(t, summary.RunID, ds.Attr(domain.AttrRunID))
	assert.Equal(t, "swath_output_20170919T1800-20170921T0000.nc", filepath.Base(summary.OutputPath))
}

// TestKafkaWriter verifies the summary message layout on a real broker.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	writer := kafka.NewWriter([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	summary := domain.SwathSummary{
		RunID:     "run-42",
		StormID:   "al092017",
		StormName: "IRMA",
		TimeMin:   time.Date(2017, 9, 6, 0, 0, 0, 0, time.UTC),
		TimeMax:   time.Date(2017, 9, 7, 0, 0, 0, 0, time.UTC),
		Steps:     5,
		NLat:      3,
		NLon:      3,
		PeakWind:  80,
		PeakTime:  time.Date(2017, 9, 6, 18, 0, 0, 0, time.UTC),
		Peak:      domain.Point{Lat: 18.5, Lon: -65},
		CreatedAt: time.Date(2017, 9, 7, 1, 0, 0, 0, time.UTC),
	}
	require.NoError(t, writer.PublishSummary(ctx, summary))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-writer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := readSummary(ctx, t, consumer)
	assert.Equal(t, "run-42", got.Key)
	assert.Equal(t, "al092017", got.Headers["storm_id"])
	_, err := time.Parse(time.RFC3339, got.Headers["created_at"])
	assert.NoError(t, err, "created_at should be valid RFC3339")
	assert.Equal(t, summary, got.Summary)
}
