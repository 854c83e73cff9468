// Command swath builds the wind swath of one tropical cyclone over a region
// of interest and writes it as NetCDF.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/storm-swath-service/internal/adapter/http"
	"github.com/couchcryptid/storm-swath-service/internal/adapter/atcf"
	kafkaadapter "github.com/couchcryptid/storm-swath-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-swath-service/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-swath-service/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-swath-service/internal/config"
	"github.com/couchcryptid/storm-swath-service/internal/domain"
	"github.com/couchcryptid/storm-swath-service/internal/observability"
	"github.com/couchcryptid/storm-swath-service/internal/pipeline"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "optional YAML configuration file")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	grid, err := buildGrid(cfg)
	if err != nil {
		logger.Error("invalid region of interest", "error", err)
		return 1
	}
	logger.Info("grid ready", "n_lat", grid.NLat(), "n_lon", grid.NLon(), "version", version)

	var source pipeline.TrackSource
	if cfg.TrackFile != "" {
		source = atcf.NewFileSource(cfg.TrackFile, logger, metrics)
		logger.Info("reading local track", "path", cfg.TrackFile)
	} else {
		client := atcf.NewClient(cfg.ArchiveURL, cfg.FetchTimeout, logger, metrics)
		source = atcf.NewStormSource(client, cfg.Storm())
		logger.Info("downloading track", "storm_id", cfg.Storm().String(), "url", client.TrackURL(cfg.Storm()))
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var publisher pipeline.SummaryPublisher
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("kafka notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	assembler := pipeline.NewAssembler(cfg.Workers, cfg.TaskTimeout, logger, metrics, clockwork.NewRealClock())
	p := pipeline.New(source, assembler, netcdf.NewWriter(logger), publisher, geocoder, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	code := 0
	summary, err := p.Run(ctx, pipeline.Job{Grid: grid, OutputDir: cfg.OutputDir})
	if err != nil {
		logger.Error("swath build failed", "error", err)
		code = 1
	} else {
		logger.Info("swath complete", "path", summary.OutputPath, "peak_wind", summary.PeakWind)
	}

	if srv == nil {
		return code
	}

	// Keep serving /swath and /metrics until asked to stop.
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return code
}

func buildGrid(cfg *config.Config) (domain.RegionGrid, error) {
	region, err := cfg.GridRegion()
	if err != nil {
		return domain.RegionGrid{}, err
	}
	res, err := cfg.GridResolution()
	if err != nil {
		return domain.RegionGrid{}, err
	}
	return domain.NewRegionGrid(region, res)
}
