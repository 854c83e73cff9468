package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_swath"

// Metrics holds the Prometheus counters, histograms, and gauges for swath builds.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Track retrieval metrics.
	TrackFetches       *prometheus.CounterVec // labels: source={http,file}, outcome={success,error}
	TrackFetchDuration prometheus.Histogram
	TrackFetchRetries  prometheus.Counter
	BreakerState       prometheus.Gauge // 0 closed, 1 half-open, 2 open
	ObservationsParsed prometheus.Counter

	// Swath build metrics.
	TimestepsComputed prometheus.Counter
	TimestepDuration  prometheus.Histogram
	Builds            *prometheus.CounterVec // labels: outcome={success,error}
	BuildDuration     prometheus.Histogram
	GridPoints        prometheus.Gauge
	PeakWind          prometheus.Gauge

	// Output metrics.
	DatasetsWritten    prometheus.Counter
	SummariesPublished *prometheus.CounterVec // labels: outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all swath metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a swath build is in progress, 0 otherwise.",
		}),
		TrackFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "track_fetches_total",
			Help:      "Track retrievals by source and outcome.",
		}, []string{"source", "outcome"}),
		TrackFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "track_fetch_duration_seconds",
			Help:      "Duration of a track retrieval including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TrackFetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "track_fetch_retries_total",
			Help:      "Retried track download attempts.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "track_fetch_breaker_state",
			Help:      "Archive circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		ObservationsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_parsed_total",
			Help:      "Total b-deck rows parsed into observations.",
		}),
		TimestepsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timesteps_computed_total",
			Help:      "Total per-timestep wind fields computed.",
		}),
		TimestepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "timestep_duration_seconds",
			Help:      "Duration of one timestep wind-field computation.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Swath builds by outcome.",
		}, []string{"outcome"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete swath assembly.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		GridPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grid_points",
			Help:      "Number of lat x lon points in the last evaluation grid.",
		}),
		PeakWind: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_wind_meters_per_second",
			Help:      "Largest wind speed in the last built swath.",
		}),
		DatasetsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_written_total",
			Help:      "Total swath datasets written to disk.",
		}),
		SummariesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Swath summary notifications by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when peak place lookup is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.TrackFetches,
		m.TrackFetchDuration,
		m.TrackFetchRetries,
		m.BreakerState,
		m.ObservationsParsed,
		m.TimestepsComputed,
		m.TimestepDuration,
		m.Builds,
		m.BuildDuration,
		m.GridPoints,
		m.PeakWind,
		m.DatasetsWritten,
		m.SummariesPublished,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
