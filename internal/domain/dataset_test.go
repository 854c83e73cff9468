package domain

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(t *testing.T) RegionGrid {
	t.Helper()
	grid, err := NewRegionGrid(Region{MinLat: 17, MaxLat: 18, MinLon: -67, MaxLon: -66}, Resolution{Lat: 0.5, Lon: 0.5})
	require.NoError(t, err)
	return grid
}

func testTimes() []time.Time {
	return []time.Time{
		time.Date(2017, 9, 16, 12, 0, 0, 0, time.UTC),
		time.Date(2017, 9, 20, 6, 0, 0, 0, time.UTC),
		time.Date(2017, 10, 3, 0, 0, 0, 0, time.UTC),
	}
}

func constantStep(n int, v float64) []float64 {
	step := make([]float64, n)
	for i := range step {
		step[i] = v
	}
	return step
}

func testDataset(t *testing.T) *SwathDataset {
	t.Helper()
	grid := testGrid(t)
	steps := [][]float64{constantStep(9, 1), constantStep(9, 2), constantStep(9, 3)}
	steps[1][5] = 70

	field, err := NewWindField(steps, grid.NLat(), grid.NLon())
	require.NoError(t, err)

	ds, err := NewSwathDataset(grid, testTimes(), field, DatasetInfo{
		RunID:     "run-1",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Storm:     StormID{Basin: "AL", Number: 15, Year: 2017},
		StormName: "MARIA",
	})
	require.NoError(t, err)
	return ds
}

func TestNewSwathDataset_TimeBounds(t *testing.T) {
	ds := testDataset(t)

	assert.Equal(t, "20170916T1200", ds.Attr(AttrTimeMin))
	assert.Equal(t, "20171003T0000", ds.Attr(AttrTimeMax))
	assert.True(t, ds.TimeMin().Before(ds.TimeMax()))
	assert.Equal(t, "swath_output_20170916T1200-20171003T0000.nc", ds.FileName())
	assert.Equal(t, "al152017", ds.Attr(AttrStormID))
	assert.Equal(t, "MARIA", ds.Attr(AttrStormName))
	assert.Equal(t, "2024-01-02T03:04:05Z", ds.Attr(AttrCreatedAt))
	assert.Empty(t, ds.OutputPath())
}

func TestNewSwathDataset_SingleStep(t *testing.T) {
	grid := testGrid(t)
	field, err := NewWindField([][]float64{constantStep(9, 0)}, grid.NLat(), grid.NLon())
	require.NoError(t, err)

	ds, err := NewSwathDataset(grid, testTimes()[:1], field, DatasetInfo{})
	require.NoError(t, err)
	assert.Equal(t, ds.Attr(AttrTimeMin), ds.Attr(AttrTimeMax))
	assert.Empty(t, ds.Attr(AttrRunID))
}

func TestNewSwathDataset_RejectsUnorderedTimes(t *testing.T) {
	grid := testGrid(t)
	field, err := NewWindField([][]float64{constantStep(9, 0), constantStep(9, 0)}, grid.NLat(), grid.NLon())
	require.NoError(t, err)

	times := testTimes()
	_, err = NewSwathDataset(grid, []time.Time{times[1], times[0]}, field, DatasetInfo{})
	require.ErrorIs(t, err, ErrModelInput)

	_, err = NewSwathDataset(grid, []time.Time{times[0], times[0]}, field, DatasetInfo{})
	require.ErrorIs(t, err, ErrModelInput)
}

func TestNewSwathDataset_ShapeMismatch(t *testing.T) {
	grid := testGrid(t)
	field, err := NewWindField([][]float64{constantStep(9, 0), constantStep(9, 0)}, grid.NLat(), grid.NLon())
	require.NoError(t, err)

	_, err = NewSwathDataset(grid, testTimes(), field, DatasetInfo{})
	require.ErrorIs(t, err, ErrModelInput)

	_, err = NewSwathDataset(grid, nil, field, DatasetInfo{})
	require.ErrorIs(t, err, ErrModelInput)
}

func TestNewWindField_Invalid(t *testing.T) {
	_, err := NewWindField([][]float64{constantStep(8, 0)}, 3, 3)
	require.ErrorIs(t, err, ErrModelInput)

	_, err = NewWindField([][]float64{constantStep(9, -1)}, 3, 3)
	require.ErrorIs(t, err, ErrModelInput)

	_, err = NewWindField([][]float64{constantStep(9, math.NaN())}, 3, 3)
	require.ErrorIs(t, err, ErrModelInput)
}

func TestWindField_Accessors(t *testing.T) {
	ds := testDataset(t)
	f := ds.Field()

	nt, nLat, nLon := f.Shape()
	assert.Equal(t, [3]int{3, 3, 3}, [3]int{nt, nLat, nLon})
	assert.Equal(t, 70.0, f.At(1, 1, 2))
	assert.Equal(t, 3.0, f.At(2, 0, 0))
	assert.Equal(t, 70.0, f.Max())

	ti, i, j := f.ArgMax()
	assert.Equal(t, [3]int{1, 1, 2}, [3]int{ti, i, j})

	step := f.Step(1)
	step[5] = 0
	assert.Equal(t, 70.0, f.At(1, 1, 2))
	assert.Len(t, f.Values(), 27)
}

func TestSwathDataset_WithOutputPath(t *testing.T) {
	ds := testDataset(t)
	out := ds.WithOutputPath("/data/swaths")

	want := filepath.Join("/data/swaths", "swath_output_20170916T1200-20171003T0000.nc")
	assert.Equal(t, want, out.OutputPath())
	assert.Equal(t, want, out.Attr(AttrFileName))
	assert.Empty(t, ds.OutputPath())
	assert.Equal(t, ds.Attr(AttrTimeMin), out.Attr(AttrTimeMin))
}

func TestSwathDataset_AttrsIsCopy(t *testing.T) {
	ds := testDataset(t)
	attrs := ds.Attrs()
	attrs[AttrTimeMin] = "changed"
	assert.Equal(t, "20170916T1200", ds.Attr(AttrTimeMin))
}

func TestSwathDataset_Summary(t *testing.T) {
	ds := testDataset(t).WithOutputPath("/out")
	s := ds.Summary()

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "al152017", s.StormID)
	assert.Equal(t, "MARIA", s.StormName)
	assert.Equal(t, 3, s.Steps)
	assert.Equal(t, 3, s.NLat)
	assert.Equal(t, 3, s.NLon)
	assert.Equal(t, 70.0, s.PeakWind)
	assert.Equal(t, testTimes()[1], s.PeakTime)
	assert.Equal(t, Point{Lat: 17.5, Lon: -66}, s.Peak)
	assert.Equal(t, testTimes()[0], s.TimeMin)
	assert.Equal(t, testTimes()[2], s.TimeMax)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), s.CreatedAt)
	assert.Equal(t, ds.OutputPath(), s.OutputPath)
}

func TestVariableAttrs(t *testing.T) {
	assert.Equal(t, "m/s", VariableAttrs(VarWind)["units"])
	assert.Equal(t, "degrees_north", VariableAttrs(VarLat)["units"])
	assert.Equal(t, "degrees_east", VariableAttrs(VarLon)["units"])
	assert.Contains(t, VariableAttrs(VarTime)["units"], "hours since")
	assert.Nil(t, VariableAttrs("unknown"))
}
