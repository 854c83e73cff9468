//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-swath-service/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestSmoke_ReverseGeocode(t *testing.T) {
	c := smokeClient(t)

	// San Juan, Puerto Rico
	result, err := c.ReverseGeocode(context.Background(), 18.4655, -66.1057)
	require.NoError(t, err)

	assert.Contains(t, result.FormattedAddress, "Puerto Rico")
	assert.NotEmpty(t, result.PlaceName)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestSmoke_ReverseGeocode_OpenWater(t *testing.T) {
	c := smokeClient(t)

	// Mid-Atlantic; the API may or may not return a marine feature, so only
	// check that the client handles it.
	_, err := c.ReverseGeocode(context.Background(), 25.0, -45.0)
	require.NoError(t, err)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedGeocoder(c, 10, observability.NewMetricsForTesting())

	// First call: cache miss → real API call.
	r1, err := cached.ReverseGeocode(context.Background(), 18.2208, -66.0356)
	require.NoError(t, err)

	// Second call: cache hit → no API call.
	r2, err := cached.ReverseGeocode(context.Background(), 18.2208, -66.0356)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
