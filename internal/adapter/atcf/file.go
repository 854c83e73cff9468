package atcf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/storm-swath-service/internal/observability"
)

// FileSource reads a b-deck file from local disk. Gzip files are detected
// by content and decompressed.
type FileSource struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string, logger *slog.Logger, metrics *observability.Metrics) *FileSource {
	return &FileSource{path: path, logger: logger, metrics: metrics}
}

// FetchTrack reads and decodes the file.
func (s *FileSource) FetchTrack(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	data, err := os.ReadFile(s.path)
	if err == nil {
		data, err = decode(data)
	}
	s.metrics.TrackFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.TrackFetches.WithLabelValues("file", "error").Inc()
		return nil, fmt.Errorf("read track %s: %w", s.path, err)
	}

	s.metrics.TrackFetches.WithLabelValues("file", "success").Inc()
	s.logger.Info("track read", "path", s.path, "bytes", len(data))
	return data, nil
}
