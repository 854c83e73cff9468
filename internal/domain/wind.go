package domain

import (
	"context"
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// Distance returns the great-circle distance between a and b in meters,
// using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h just outside [0, 1] for antipodal points.
	h = math.Min(math.Max(h, 0), 1)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// WindSpeed evaluates the Jelesnianski (1965) radial profile: the wind grows
// as (r/rmw)^1.5 up to the radius of maximum wind and decays as (rmw/r)^0.5
// beyond it. Both branches equal maxWind at r == rmw.
//
// The profile is zero at the storm center. That is a property of the model,
// not of the storm. rmw must be positive; use NewProfile to validate inputs.
func WindSpeed(maxWind, rmw, r float64) float64 {
	if r <= rmw {
		return maxWind * math.Pow(r/rmw, 1.5)
	}
	return maxWind * math.Sqrt(rmw/r)
}

// Profile is a validated set of wind-model parameters for one storm center.
type Profile struct {
	Center     Point
	MaxWind    float64 // m/s
	MaxWindRad float64 // m
}

// NewProfile validates the driving observation of one timestep.
func NewProfile(obs Observation) (Profile, error) {
	p := Profile{Center: obs.Center(), MaxWind: obs.MaxWind, MaxWindRad: obs.MaxWindRad}
	switch {
	case !p.Center.Valid():
		return Profile{}, fmt.Errorf("%w: storm center (%g, %g) out of range", ErrModelInput, p.Center.Lat, p.Center.Lon)
	case math.IsNaN(p.MaxWind) || math.IsInf(p.MaxWind, 0) || p.MaxWind < 0:
		return Profile{}, fmt.Errorf("%w: max wind %g must be non-negative", ErrModelInput, p.MaxWind)
	case math.IsNaN(p.MaxWindRad) || math.IsInf(p.MaxWindRad, 0) || p.MaxWindRad <= 0:
		return Profile{}, fmt.Errorf("%w: radius of max wind %g must be positive", ErrModelInput, p.MaxWindRad)
	}
	return p, nil
}

// At returns the wind speed at distance r (meters) from the center.
func (p Profile) At(r float64) float64 {
	return WindSpeed(p.MaxWind, p.MaxWindRad, r)
}

// ComputeWindField evaluates the profile at every grid point and returns a
// row-major lat x lon field. The context is checked between rows so a
// cancelled or timed-out build stops promptly.
func ComputeWindField(ctx context.Context, grid RegionGrid, p Profile) ([]float64, error) {
	nLon := grid.NLon()
	field := make([]float64, grid.Size())
	for i, lat := range grid.lats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := field[i*nLon : (i+1)*nLon]
		for j, lon := range grid.lons {
			row[j] = p.At(Distance(Point{Lat: lat, Lon: lon}, p.Center))
		}
	}
	return field, nil
}
