package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
	"github.com/couchcryptid/storm-swath-service/internal/observability"
)

// stepFunc computes the lat x lon wind field for one driving observation.
type stepFunc func(ctx context.Context, grid domain.RegionGrid, obs domain.Observation) ([]float64, error)

// windStep evaluates the radial wind profile of obs over the grid.
func windStep(ctx context.Context, grid domain.RegionGrid, obs domain.Observation) ([]float64, error) {
	p, err := domain.NewProfile(obs)
	if err != nil {
		return nil, err
	}
	return domain.ComputeWindField(ctx, grid, p)
}

// Assembler computes one wind field per track timestep on a bounded pool of
// goroutines and stacks the results in time order.
type Assembler struct {
	workers     int
	taskTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	step        stepFunc
}

// NewAssembler creates an Assembler. workers <= 0 uses one worker per CPU;
// taskTimeout <= 0 disables the per-timestep deadline.
func NewAssembler(workers int, taskTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Assembler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Assembler{
		workers:     workers,
		taskTimeout: taskTimeout,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
		step:        windStep,
	}
}

// Build assembles the swath of track over grid.
//
// Every distinct timestamp is computed independently. The first failing
// timestep cancels the rest and Build returns a *domain.ComputationError and
// no dataset. Results are stacked by timestamp, never by completion order.
func (a *Assembler) Build(ctx context.Context, track domain.Track, grid domain.RegionGrid) (*domain.SwathDataset, error) {
	if track.Len() == 0 {
		return nil, fmt.Errorf("%w: track has no observations", domain.ErrModelInput)
	}
	if grid.Size() == 0 {
		return nil, fmt.Errorf("%w: empty grid", domain.ErrModelInput)
	}

	start := a.clock.Now()
	times := track.Times()
	fields := make([][]float64, len(times))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range times {
		obs := track.At(i)
		g.Go(func() error {
			field, err := a.computeStep(gctx, grid, obs)
			if err != nil {
				return &domain.ComputationError{Index: i, Time: times[i], Err: err}
			}
			fields[i] = field
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.metrics.Builds.WithLabelValues("error").Inc()
		a.logger.Error("swath assembly failed", "error", err, "steps", len(times))
		return nil, err
	}

	field, err := domain.NewWindField(fields, grid.NLat(), grid.NLon())
	if err != nil {
		a.metrics.Builds.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrComputation, err)
	}

	ds, err := domain.NewSwathDataset(grid, times, field, domain.DatasetInfo{
		RunID:     uuid.NewString(),
		CreatedAt: a.clock.Now(),
		Storm:     track.StormID(),
		StormName: track.StormName(),
	})
	if err != nil {
		a.metrics.Builds.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrComputation, err)
	}

	elapsed := a.clock.Since(start)
	a.metrics.Builds.WithLabelValues("success").Inc()
	a.metrics.BuildDuration.Observe(elapsed.Seconds())
	a.metrics.GridPoints.Set(float64(grid.Size()))
	a.metrics.PeakWind.Set(field.Max())

	a.logger.Info("swath assembled",
		"run_id", ds.Attr(domain.AttrRunID),
		"steps", len(times),
		"n_lat", grid.NLat(),
		"n_lon", grid.NLon(),
		"time_min", ds.Attr(domain.AttrTimeMin),
		"time_max", ds.Attr(domain.AttrTimeMax),
		"peak_wind", field.Max(),
		"duration", elapsed,
	)
	return ds, nil
}

func (a *Assembler) computeStep(ctx context.Context, grid domain.RegionGrid, obs domain.Observation) ([]float64, error) {
	if a.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.taskTimeout)
		defer cancel()
	}

	start := a.clock.Now()
	field, err := a.step(ctx, grid, obs)
	if err != nil {
		return nil, err
	}
	if len(field) != grid.Size() {
		return nil, fmt.Errorf("%w: step produced %d values, want %d", domain.ErrModelInput, len(field), grid.Size())
	}

	a.metrics.TimestepsComputed.Inc()
	a.metrics.TimestepDuration.Observe(a.clock.Since(start).Seconds())
	a.logger.Debug("timestep computed", "time", obs.Time, "line", obs.Line)
	return field, nil
}
