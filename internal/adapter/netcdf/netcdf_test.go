package netcdf

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

func testDataset(t *testing.T, dir string) *domain.SwathDataset {
	t.Helper()
	grid, err := domain.NewRegionGrid(
		domain.Region{MinLat: 17.5, MaxLat: 18.5, MinLon: -67, MaxLon: -66},
		domain.Resolution{Lat: 0.5, Lon: 0.5},
	)
	require.NoError(t, err)

	times := []time.Time{
		time.Date(2017, 9, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2017, 9, 20, 6, 0, 0, 0, time.UTC),
	}
	steps := make([][]float64, len(times))
	for s := range steps {
		steps[s] = make([]float64, grid.Size())
		for k := range steps[s] {
			steps[s][k] = float64(s*100 + k)
		}
	}
	field, err := domain.NewWindField(steps, grid.NLat(), grid.NLon())
	require.NoError(t, err)

	ds, err := domain.NewSwathDataset(grid, times, field, domain.DatasetInfo{
		RunID:     "run-1",
		CreatedAt: time.Date(2017, 9, 21, 0, 0, 0, 0, time.UTC),
		Storm:     domain.StormID{Basin: "al", Number: 15, Year: 2017},
		StormName: "MARIA",
	})
	require.NoError(t, err)
	return ds.WithOutputPath(dir)
}

func TestWriteDataset_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	ds := testDataset(t, dir)

	w := NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.WriteDataset(context.Background(), ds))

	path := filepath.Join(dir, "swath_output_20170920T0000-20170920T0600.nc")
	assert.Equal(t, path, ds.OutputPath())
	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)

	got, err := Read(path)
	require.NoError(t, err)

	approx := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff(ds.Grid().Lats(), got.Grid().Lats(), approx); diff != "" {
		t.Errorf("lats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ds.Grid().Lons(), got.Grid().Lons(), approx); diff != "" {
		t.Errorf("lons mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ds.Times(), got.Times()); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ds.Field().Values(), got.Field().Values()); diff != "" {
		t.Errorf("wsp mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ds.Attrs(), got.Attrs())
}

func TestWriteDataset_GlobalAttributes(t *testing.T) {
	ds := testDataset(t, t.TempDir())
	w := NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.WriteDataset(context.Background(), ds))

	attrs, err := ReadAttrs(ds.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, "20170920T0000", attrs[domain.AttrTimeMin])
	assert.Equal(t, "20170920T0600", attrs[domain.AttrTimeMax])
	assert.Equal(t, ds.OutputPath(), attrs[domain.AttrFileName])
	assert.Equal(t, "al152017", attrs[domain.AttrStormID])
	assert.Equal(t, Conventions, attrs["Conventions"])
}

func TestWriteDataset_NoOutputPath(t *testing.T) {
	ds := testDataset(t, t.TempDir())
	bare, err := domain.NewSwathDataset(ds.Grid(), ds.Times(), ds.Field(), domain.DatasetInfo{})
	require.NoError(t, err)

	w := NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, w.WriteDataset(context.Background(), bare))
}

func TestWriteDataset_CancelledContext(t *testing.T) {
	ds := testDataset(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWriter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.ErrorIs(t, w.WriteDataset(ctx, ds), context.Canceled)
	_, err := os.Stat(ds.OutputPath())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.nc"))
	require.Error(t, err)
}

func TestParseStormID(t *testing.T) {
	assert.Equal(t, domain.StormID{Basin: "al", Number: 15, Year: 2017}, parseStormID("al152017"))
	assert.True(t, parseStormID("").IsZero())
	assert.True(t, parseStormID("alxx2017").IsZero())
}
