package domain

import (
	"fmt"
	"math"
)

// gridTolerance absorbs floating-point error when deciding whether the upper
// bound of an axis lies on the lattice, in units of one step.
const gridTolerance = 1e-6

// Region is a latitude/longitude bounding box in decimal degrees.
type Region struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Resolution is the grid spacing in decimal degrees.
type Resolution struct {
	Lat float64
	Lon float64
}

// RegionFromSlice builds a Region from (min_lat, max_lat, min_lon, max_lon).
func RegionFromSlice(v []float64) (Region, error) {
	if len(v) != 4 {
		return Region{}, fmt.Errorf("%w: region needs 4 values (min_lat, max_lat, min_lon, max_lon), got %d", ErrInvalidRegion, len(v))
	}
	return Region{MinLat: v[0], MaxLat: v[1], MinLon: v[2], MaxLon: v[3]}, nil
}

// ResolutionFromSlice builds a Resolution from (res_lat, res_lon).
func ResolutionFromSlice(v []float64) (Resolution, error) {
	if len(v) != 2 {
		return Resolution{}, fmt.Errorf("%w: resolution needs 2 values (lat, lon), got %d", ErrInvalidRegion, len(v))
	}
	return Resolution{Lat: v[0], Lon: v[1]}, nil
}

// RegionGrid is the fixed evaluation grid shared by every timestep. Both
// axes are strictly increasing.
type RegionGrid struct {
	lats       []float64
	lons       []float64
	resolution Resolution
}

// NewRegionGrid builds the grid covering region at the given resolution.
//
// Each axis starts at its minimum and holds the points min + i*res for as
// long as they do not pass the maximum. The maximum itself is included when
// it falls on the lattice. Points are computed by multiplication, not by
// accumulating steps, so the point count does not depend on rounding drift.
func NewRegionGrid(region Region, res Resolution) (RegionGrid, error) {
	lats, err := buildAxis("latitude", region.MinLat, region.MaxLat, res.Lat, 90)
	if err != nil {
		return RegionGrid{}, err
	}
	lons, err := buildAxis("longitude", region.MinLon, region.MaxLon, res.Lon, 180)
	if err != nil {
		return RegionGrid{}, err
	}
	return RegionGrid{lats: lats, lons: lons, resolution: res}, nil
}

func buildAxis(name string, lo, hi, step, limit float64) ([]float64, error) {
	for _, v := range []float64{lo, hi, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s bounds and resolution must be finite", ErrInvalidRegion, name)
		}
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: %s resolution must be positive, got %g", ErrInvalidRegion, name, step)
	}
	if lo >= hi {
		return nil, fmt.Errorf("%w: %s minimum %g must be below maximum %g", ErrInvalidRegion, name, lo, hi)
	}
	if lo < -limit || hi > limit {
		return nil, fmt.Errorf("%w: %s range [%g, %g] outside [-%g, %g]", ErrInvalidRegion, name, lo, hi, limit, limit)
	}

	n := int(math.Floor((hi-lo)/step+gridTolerance)) + 1
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = snap(lo + float64(i)*step)
	}
	return axis, nil
}

// snap rounds away the last few bits of float noise so coordinates such as
// 17.799999999999997 are stored as 17.8.
func snap(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}

// Lats returns a copy of the latitude axis.
func (g RegionGrid) Lats() []float64 {
	return append([]float64(nil), g.lats...)
}

// Lons returns a copy of the longitude axis.
func (g RegionGrid) Lons() []float64 {
	return append([]float64(nil), g.lons...)
}

// NLat returns the number of latitude points.
func (g RegionGrid) NLat() int { return len(g.lats) }

// NLon returns the number of longitude points.
func (g RegionGrid) NLon() int { return len(g.lons) }

// Size returns the number of grid points.
func (g RegionGrid) Size() int { return len(g.lats) * len(g.lons) }

// Resolution returns the grid spacing.
func (g RegionGrid) Resolution() Resolution { return g.resolution }

// Point returns the coordinates of grid cell (i, j).
func (g RegionGrid) Point(i, j int) Point {
	return Point{Lat: g.lats[i], Lon: g.lons[j]}
}

// NewRegionGridFromAxes rebuilds a grid from stored coordinate axes, e.g.
// when loading a dataset from disk. Both axes must be strictly increasing.
func NewRegionGridFromAxes(lats, lons []float64) (RegionGrid, error) {
	if err := checkIncreasing("latitude", lats); err != nil {
		return RegionGrid{}, err
	}
	if err := checkIncreasing("longitude", lons); err != nil {
		return RegionGrid{}, err
	}
	res := Resolution{}
	if len(lats) > 1 {
		res.Lat = snap(lats[1] - lats[0])
	}
	if len(lons) > 1 {
		res.Lon = snap(lons[1] - lons[0])
	}
	return RegionGrid{
		lats:       append([]float64(nil), lats...),
		lons:       append([]float64(nil), lons...),
		resolution: res,
	}, nil
}

func checkIncreasing(name string, axis []float64) error {
	if len(axis) == 0 {
		return fmt.Errorf("%w: empty %s axis", ErrInvalidRegion, name)
	}
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return fmt.Errorf("%w: %s axis not strictly increasing at index %d", ErrInvalidRegion, name, i)
		}
	}
	return nil
}
