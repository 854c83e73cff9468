// Package netcdf stores swath datasets as classic NetCDF (CDF) files.
package netcdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

// Conventions is written as the Conventions global attribute.
const Conventions = "CF-1.8"

const attrConventions = "Conventions"

// Writer serializes datasets to their output path.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteDataset writes ds to ds.OutputPath(), creating the directory when
// needed. The file appears atomically: it is written next to the target and
// renamed into place.
func (w *Writer) WriteDataset(ctx context.Context, ds *domain.SwathDataset) error {
	path := ds.OutputPath()
	if path == "" {
		return errors.New("dataset has no output path")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	start := time.Now()
	tmp := path + ".tmp"
	if err := write(tmp, ds); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	nt, nLat, nLon := ds.Field().Shape()
	w.logger.Info("netcdf written",
		"path", path,
		"time", nt,
		"lat", nLat,
		"lon", nLon,
		"duration", time.Since(start),
	)
	return nil
}

func write(path string, ds *domain.SwathDataset) (err error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("open netcdf writer: %w", err)
	}
	defer func() {
		if cerr := cw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close netcdf writer: %w", cerr)
		}
	}()

	grid := ds.Grid()
	vars := []struct {
		name   string
		values any
		dims   []string
	}{
		{domain.VarTime, hoursSinceEpoch(ds.Times()), []string{domain.VarTime}},
		{domain.VarLat, grid.Lats(), []string{domain.VarLat}},
		{domain.VarLon, grid.Lons(), []string{domain.VarLon}},
		{domain.VarWind, cube(ds.Field()), []string{domain.VarTime, domain.VarLat, domain.VarLon}},
	}
	for _, v := range vars {
		attrs, err := orderedAttrs(domain.VariableAttrs(v.name))
		if err != nil {
			return fmt.Errorf("attributes of %s: %w", v.name, err)
		}
		if err := cw.AddVar(v.name, api.Variable{Values: v.values, Dimensions: v.dims, Attributes: attrs}); err != nil {
			return fmt.Errorf("add variable %s: %w", v.name, err)
		}
	}

	global := ds.Attrs()
	global[attrConventions] = Conventions
	attrs, err := orderedAttrs(global)
	if err != nil {
		return fmt.Errorf("global attributes: %w", err)
	}
	if err := cw.AddGlobalAttrs(attrs); err != nil {
		return fmt.Errorf("add global attributes: %w", err)
	}
	return nil
}

// orderedAttrs sorts keys so files are byte-stable across runs.
func orderedAttrs(m map[string]string) (*util.OrderedMap, error) {
	keys := make([]string, 0, len(m))
	vals := make(map[string]any, len(m))
	for k, v := range m {
		keys = append(keys, k)
		vals[k] = v
	}
	slices.Sort(keys)
	return util.NewOrderedMap(keys, vals)
}

func hoursSinceEpoch(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = float64(t.Unix()) / 3600
	}
	return out
}

func cube(f domain.WindField) [][][]float64 {
	nt, nLat, nLon := f.Shape()
	out := make([][][]float64, nt)
	for t := range nt {
		out[t] = make([][]float64, nLat)
		for i := range nLat {
			row := make([]float64, nLon)
			for j := range nLon {
				row[j] = f.At(t, i, j)
			}
			out[t][i] = row
		}
	}
	return out
}
