package domain

import (
	"context"
	"log/slog"
)

// EnrichSummaryWithPlace names the place nearest to the swath's peak wind.
// If geocoder is nil or the lookup fails, the summary is returned with
// PlaceSource set accordingly (graceful degradation).
func EnrichSummaryWithPlace(ctx context.Context, summary SwathSummary, geocoder Geocoder, logger *slog.Logger) SwathSummary {
	if geocoder == nil {
		return summary
	}

	result, err := geocoder.ReverseGeocode(ctx, summary.Peak.Lat, summary.Peak.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"run_id", summary.RunID,
			"lat", summary.Peak.Lat,
			"lon", summary.Peak.Lon,
			"error", err,
		)
		summary.PlaceSource = "failed"
		return summary
	}
	if result.FormattedAddress == "" {
		// Open water: nothing nearby to name.
		summary.PlaceSource = "original"
		return summary
	}

	summary.PlaceName = result.PlaceName
	summary.FormattedAddress = result.FormattedAddress
	summary.PlaceConfidence = result.Confidence
	summary.PlaceSource = "reverse"
	return summary
}
