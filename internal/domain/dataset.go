package domain

import (
	"fmt"
	"maps"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Global attribute keys of a swath dataset.
const (
	AttrTimeMin   = "time_min"
	AttrTimeMax   = "time_max"
	AttrFileName  = "file_name"
	AttrRunID     = "run_id"
	AttrCreatedAt = "created_at"
	AttrStormID   = "storm_id"
	AttrStormName = "storm_name"
)

// TimeLabelLayout formats time_min/time_max and the output file name.
const TimeLabelLayout = "20060102T1504"

// Variable names used for the dataset axes and the wind-speed field.
const (
	VarTime = "time"
	VarLat  = "lat"
	VarLon  = "lon"
	VarWind = "wsp"
)

// WindField is a dense [time, lat, lon] array of wind speeds in m/s stored
// row-major.
type WindField struct {
	nTime int
	nLat  int
	nLon  int
	data  []float64
}

// NewWindField stacks per-timestep lat x lon fields in the given order.
// Every step must have nLat*nLon non-negative values.
func NewWindField(steps [][]float64, nLat, nLon int) (WindField, error) {
	size := nLat * nLon
	data := make([]float64, 0, len(steps)*size)
	for t, step := range steps {
		if len(step) != size {
			return WindField{}, fmt.Errorf("%w: step %d has %d values, want %d", ErrModelInput, t, len(step), size)
		}
		for _, v := range step {
			if v < 0 || math.IsNaN(v) {
				return WindField{}, fmt.Errorf("%w: step %d has invalid wind speed %g", ErrModelInput, t, v)
			}
		}
		data = append(data, step...)
	}
	return WindField{nTime: len(steps), nLat: nLat, nLon: nLon, data: data}, nil
}

// Shape returns the (time, lat, lon) dimensions.
func (f WindField) Shape() (int, int, int) {
	return f.nTime, f.nLat, f.nLon
}

// At returns the wind speed at time index t and grid cell (i, j).
func (f WindField) At(t, i, j int) float64 {
	return f.data[(t*f.nLat+i)*f.nLon+j]
}

// Step returns a copy of the lat x lon field at time index t.
func (f WindField) Step(t int) []float64 {
	size := f.nLat * f.nLon
	return append([]float64(nil), f.data[t*size:(t+1)*size]...)
}

// Values returns a copy of the flat row-major data.
func (f WindField) Values() []float64 {
	return append([]float64(nil), f.data...)
}

// Max returns the largest wind speed in the field, 0 for an empty field.
func (f WindField) Max() float64 {
	if len(f.data) == 0 {
		return 0
	}
	return floats.Max(f.data)
}

// ArgMax returns the (time, lat, lon) indices of the largest wind speed.
func (f WindField) ArgMax() (int, int, int) {
	if len(f.data) == 0 {
		return 0, 0, 0
	}
	k := floats.MaxIdx(f.data)
	size := f.nLat * f.nLon
	return k / size, (k % size) / f.nLon, k % f.nLon
}

// DatasetInfo carries the descriptive metadata of a build.
type DatasetInfo struct {
	RunID      string
	CreatedAt  time.Time
	Storm      StormID
	StormName  string
	OutputPath string
}

// SwathDataset bundles the grid, the time axis, the wind field and the
// metadata of one swath build. Values are not mutated after construction.
type SwathDataset struct {
	grid  RegionGrid
	times []time.Time
	field WindField
	attrs map[string]string
}

// NewSwathDataset validates that the time axis is strictly ascending and
// that the field shape matches the grid and the time axis.
func NewSwathDataset(grid RegionGrid, times []time.Time, field WindField, info DatasetInfo) (*SwathDataset, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: empty time axis", ErrModelInput)
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, fmt.Errorf("%w: time axis not strictly ascending at index %d", ErrModelInput, i)
		}
	}
	nt, nLat, nLon := field.Shape()
	if nt != len(times) || nLat != grid.NLat() || nLon != grid.NLon() {
		return nil, fmt.Errorf("%w: field shape (%d,%d,%d) does not match axes (%d,%d,%d)",
			ErrModelInput, nt, nLat, nLon, len(times), grid.NLat(), grid.NLon())
	}

	utc := make([]time.Time, len(times))
	for i, ts := range times {
		utc[i] = ts.UTC()
	}

	attrs := map[string]string{
		AttrTimeMin: utc[0].Format(TimeLabelLayout),
		AttrTimeMax: utc[len(utc)-1].Format(TimeLabelLayout),
	}
	if info.RunID != "" {
		attrs[AttrRunID] = info.RunID
	}
	if !info.CreatedAt.IsZero() {
		attrs[AttrCreatedAt] = info.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !info.Storm.IsZero() {
		attrs[AttrStormID] = info.Storm.String()
	}
	if info.StormName != "" {
		attrs[AttrStormName] = info.StormName
	}
	if info.OutputPath != "" {
		attrs[AttrFileName] = info.OutputPath
	}

	return &SwathDataset{grid: grid, times: utc, field: field, attrs: attrs}, nil
}

// FileName is the artifact name derived from time_min and time_max, e.g.
// "swath_output_20170916T1200-20171003T0000.nc".
func (d *SwathDataset) FileName() string {
	return fmt.Sprintf("swath_output_%s-%s.nc", d.attrs[AttrTimeMin], d.attrs[AttrTimeMax])
}

// WithOutputPath returns a copy of the dataset whose file_name attribute
// points at FileName inside dir. The wind field is shared, not copied.
func (d *SwathDataset) WithOutputPath(dir string) *SwathDataset {
	attrs := maps.Clone(d.attrs)
	attrs[AttrFileName] = filepath.Join(dir, d.FileName())
	return &SwathDataset{grid: d.grid, times: d.times, field: d.field, attrs: attrs}
}

// Grid returns the evaluation grid.
func (d *SwathDataset) Grid() RegionGrid { return d.grid }

// Field returns the wind-speed field.
func (d *SwathDataset) Field() WindField { return d.field }

// Times returns a copy of the ascending time axis.
func (d *SwathDataset) Times() []time.Time {
	return append([]time.Time(nil), d.times...)
}

// TimeMin returns the earliest timestamp.
func (d *SwathDataset) TimeMin() time.Time { return d.times[0] }

// TimeMax returns the latest timestamp.
func (d *SwathDataset) TimeMax() time.Time { return d.times[len(d.times)-1] }

// Attrs returns a copy of the global attributes.
func (d *SwathDataset) Attrs() map[string]string {
	return maps.Clone(d.attrs)
}

// Attr returns one global attribute.
func (d *SwathDataset) Attr(key string) string {
	return d.attrs[key]
}

// OutputPath returns the file_name attribute, empty until WithOutputPath.
func (d *SwathDataset) OutputPath() string {
	return d.attrs[AttrFileName]
}

// VariableAttrs returns the descriptive attributes of a dataset variable.
func VariableAttrs(name string) map[string]string {
	switch name {
	case VarLat:
		return map[string]string{"long_name": "latitude", "units": "degrees_north", "axis": "Y", "short_name": VarLat}
	case VarLon:
		return map[string]string{"long_name": "longitude", "units": "degrees_east", "axis": "X", "short_name": VarLon}
	case VarTime:
		return map[string]string{"long_name": "time", "units": "hours since 1970-01-01 00:00:00", "calendar": "standard", "axis": "T"}
	case VarWind:
		return map[string]string{"long_name": "swath wind speed", "short_name": VarWind, "units": "m/s"}
	default:
		return nil
	}
}

// SwathSummary is a compact digest of a dataset for notifications.
type SwathSummary struct {
	RunID      string    `json:"run_id"`
	StormID    string    `json:"storm_id,omitempty"`
	StormName  string    `json:"storm_name,omitempty"`
	TimeMin    time.Time `json:"time_min"`
	TimeMax    time.Time `json:"time_max"`
	Steps      int       `json:"steps"`
	NLat       int       `json:"n_lat"`
	NLon       int       `json:"n_lon"`
	PeakWind   float64   `json:"peak_wind"`
	PeakTime   time.Time `json:"peak_time"`
	Peak       Point     `json:"peak"`
	OutputPath string    `json:"output_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Place enrichment fields.
	PlaceName        string  `json:"place_name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceConfidence  float64 `json:"place_confidence,omitempty"`
	PlaceSource      string  `json:"place_source,omitempty"` // "reverse", "original", "failed"
}

// Summary computes the digest of the dataset, including the location and
// time of the peak wind.
func (d *SwathDataset) Summary() SwathSummary {
	nt, nLat, nLon := d.field.Shape()
	t, i, j := d.field.ArgMax()

	var created time.Time
	if s := d.attrs[AttrCreatedAt]; s != "" {
		created, _ = time.Parse(time.RFC3339, s)
	}

	return SwathSummary{
		RunID:      d.attrs[AttrRunID],
		StormID:    d.attrs[AttrStormID],
		StormName:  d.attrs[AttrStormName],
		TimeMin:    d.TimeMin(),
		TimeMax:    d.TimeMax(),
		Steps:      nt,
		NLat:       nLat,
		NLon:       nLon,
		PeakWind:   d.field.Max(),
		PeakTime:   d.times[t],
		Peak:       d.grid.Point(i, j),
		OutputPath: d.OutputPath(),
		CreatedAt:  created,
	}
}
