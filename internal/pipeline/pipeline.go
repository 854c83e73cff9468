package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
	"github.com/couchcryptid/storm-swath-service/internal/observability"
)

// TrackSource returns the raw, uncompressed b-deck text of one storm.
type TrackSource interface {
	FetchTrack(ctx context.Context) ([]byte, error)
}

// DatasetWriter persists a finished swath at its output path.
type DatasetWriter interface {
	WriteDataset(ctx context.Context, ds *domain.SwathDataset) error
}

// SummaryPublisher announces a finished swath.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, summary domain.SwathSummary) error
}

// Job describes one swath build.
type Job struct {
	Grid      domain.RegionGrid
	OutputDir string
}

// Pipeline orchestrates fetch, parse, assemble, write and notify for one
// storm.
type Pipeline struct {
	source    TrackSource
	assembler *Assembler
	writer    DatasetWriter
	publisher SummaryPublisher
	geocoder  domain.Geocoder
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	last      atomic.Pointer[domain.SwathSummary]
}

// New creates a Pipeline with the given stages and observability. publisher
// and geocoder are optional; pass nil to skip notification or place lookup.
func New(source TrackSource, assembler *Assembler, writer DatasetWriter, publisher SummaryPublisher,
	geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		source:    source,
		assembler: assembler,
		writer:    writer,
		publisher: publisher,
		geocoder:  geocoder,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a swath has been built and written, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no swath has been built yet")
	}
	return nil
}

// Ready reports whether a swath has been built and written.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// LastSummary returns the summary of the most recent written swath.
func (p *Pipeline) LastSummary() (domain.SwathSummary, bool) {
	s := p.last.Load()
	if s == nil {
		return domain.SwathSummary{}, false
	}
	return *s, true
}

// Run executes one build and returns the summary of the written dataset.
// A failed notification is returned as an error after the dataset has been
// written; the summary is still valid in that case.
func (p *Pipeline) Run(ctx context.Context, job Job) (domain.SwathSummary, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	start := time.Now()

	raw, err := p.source.FetchTrack(ctx)
	if err != nil {
		return domain.SwathSummary{}, fmt.Errorf("fetch track: %w", err)
	}

	observations, err := domain.ParseBDeck(bytes.NewReader(raw))
	if err != nil {
		return domain.SwathSummary{}, fmt.Errorf("parse track: %w", err)
	}
	p.metrics.ObservationsParsed.Add(float64(len(observations)))

	track := domain.NewTrack(observations)
	p.logger.Info("track loaded",
		"rows", len(observations),
		"timesteps", track.Len(),
		"storm_id", track.StormID().String(),
		"storm_name", track.StormName(),
	)

	ds, err := p.assembler.Build(ctx, track, job.Grid)
	if err != nil {
		return domain.SwathSummary{}, fmt.Errorf("assemble swath: %w", err)
	}
	ds = ds.WithOutputPath(job.OutputDir)

	if err := p.writer.WriteDataset(ctx, ds); err != nil {
		return domain.SwathSummary{}, fmt.Errorf("write dataset %s: %w", ds.OutputPath(), err)
	}
	p.metrics.DatasetsWritten.Inc()
	p.ready.Store(true)

	summary := domain.EnrichSummaryWithPlace(ctx, ds.Summary(), p.geocoder, p.logger)
	p.last.Store(&summary)

	p.logger.Info("swath written",
		"run_id", summary.RunID,
		"path", summary.OutputPath,
		"peak_wind", summary.PeakWind,
		"peak_lat", summary.Peak.Lat,
		"peak_lon", summary.Peak.Lon,
		"place", summary.FormattedAddress,
		"duration", time.Since(start),
	)

	if p.publisher == nil {
		return summary, nil
	}
	if err := p.publisher.PublishSummary(ctx, summary); err != nil {
		p.metrics.SummariesPublished.WithLabelValues("error").Inc()
		p.logger.Error("publish summary failed", "error", err, "run_id", summary.RunID)
		return summary, fmt.Errorf("publish summary: %w", err)
	}
	p.metrics.SummariesPublished.WithLabelValues("success").Inc()
	return summary, nil
}
