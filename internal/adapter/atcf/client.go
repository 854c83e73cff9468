// Package atcf retrieves b-deck best-track files from the ATCF archive or
// from local disk.
package atcf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
	"github.com/couchcryptid/storm-swath-service/internal/observability"
)

// ErrTrackNotFound is returned when the archive has no file for a storm.
var ErrTrackNotFound = errors.New("track not found in archive")

// RetryPolicy configures retries of failed downloads.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy retries three times, starting at 500ms and doubling up
// to 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// statusError is an unexpected HTTP status from the archive.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "archive returned HTTP " + strconv.Itoa(e.code)
}

func (e *statusError) retryable() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

// Client downloads b-deck files over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	retry      RetryPolicy
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates a Client rooted at baseURL, e.g.
// "https://ftp.nhc.noaa.gov/atcf/archive".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryPolicy(),
		logger:     logger,
		metrics:    metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "atcf-archive",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing file or bad request says nothing about archive health.
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || errors.Is(err, ErrTrackNotFound) || (errors.As(err, &se) && !se.retryable())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TrackURL returns the archive URL of a storm's b-deck file:
// <base>/<year>/b<basin><nn><year>.dat.gz.
func (c *Client) TrackURL(id domain.StormID) string {
	return fmt.Sprintf("%s/%04d/%s", c.baseURL, id.Year, id.FileName())
}

// Fetch downloads and decompresses the b-deck file of a storm. Transport
// errors, 429 and 5xx responses are retried with exponential backoff.
func (c *Client) Fetch(ctx context.Context, id domain.StormID) ([]byte, error) {
	url := c.TrackURL(id)
	start := time.Now()

	data, err := c.fetchWithRetry(ctx, url)
	c.metrics.TrackFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.TrackFetches.WithLabelValues("http", "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	out, err := decode(data)
	if err != nil {
		c.metrics.TrackFetches.WithLabelValues("http", "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	c.metrics.TrackFetches.WithLabelValues("http", "success").Inc()
	c.logger.Info("track downloaded", "url", url, "bytes", len(data), "decoded_bytes", len(out))
	return out, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	backoff := c.retry.MinWait
	for attempt := 0; ; attempt++ {
		data, err := c.breaker.Execute(func() ([]byte, error) {
			return c.doRequest(ctx, url)
		})
		if err == nil {
			return data, nil
		}
		if !c.shouldRetry(ctx, err) || attempt >= c.retry.MaxRetries {
			return nil, err
		}

		c.metrics.TrackFetchRetries.Inc()
		c.logger.Warn("track download failed, retrying",
			"url", url,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, c.retry.MaxWait)
	}
}

func (c *Client) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrTrackNotFound) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	// Transport errors.
	return true
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTrackNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTrackBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxTrackBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxTrackBytes)
	}
	return data, nil
}

// StormSource fetches one storm's track from the archive.
type StormSource struct {
	client *Client
	id     domain.StormID
}

// NewStormSource binds a Client to a storm id.
func NewStormSource(client *Client, id domain.StormID) *StormSource {
	return &StormSource{client: client, id: id}
}

// FetchTrack downloads the bound storm's b-deck text.
func (s *StormSource) FetchTrack(ctx context.Context) ([]byte, error) {
	return s.client.Fetch(ctx, s.id)
}
