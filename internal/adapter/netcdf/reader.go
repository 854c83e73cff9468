package netcdf

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

// Read loads a swath file written by Writer.
func Read(path string) (*domain.SwathDataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()

	hours, err := vector(nc, domain.VarTime)
	if err != nil {
		return nil, err
	}
	lats, err := vector(nc, domain.VarLat)
	if err != nil {
		return nil, err
	}
	lons, err := vector(nc, domain.VarLon)
	if err != nil {
		return nil, err
	}

	grid, err := domain.NewRegionGridFromAxes(lats, lons)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	wsp, err := nc.GetVariable(domain.VarWind)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", domain.VarWind, err)
	}
	values, ok := wsp.Values.([][][]float64)
	if !ok {
		return nil, fmt.Errorf("variable %s: unexpected type %T", domain.VarWind, wsp.Values)
	}
	steps := make([][]float64, len(values))
	for t, plane := range values {
		for _, row := range plane {
			steps[t] = append(steps[t], row...)
		}
	}
	field, err := domain.NewWindField(steps, grid.NLat(), grid.NLon())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	times := make([]time.Time, len(hours))
	for i, h := range hours {
		times[i] = time.Unix(int64(math.Round(h*3600)), 0).UTC()
	}

	attrs := stringAttrs(nc.Attributes())
	info := domain.DatasetInfo{
		RunID:      attrs[domain.AttrRunID],
		Storm:      parseStormID(attrs[domain.AttrStormID]),
		StormName:  attrs[domain.AttrStormName],
		OutputPath: attrs[domain.AttrFileName],
	}
	if s := attrs[domain.AttrCreatedAt]; s != "" {
		info.CreatedAt, _ = time.Parse(time.RFC3339, s)
	}
	return domain.NewSwathDataset(grid, times, field, info)
}

// ReadAttrs returns the global attributes of a swath file.
func ReadAttrs(path string) (map[string]string, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer nc.Close()
	return stringAttrs(nc.Attributes()), nil
}

func vector(nc api.Group, name string) ([]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	out, ok := v.Values.([]float64)
	if !ok {
		return nil, fmt.Errorf("variable %s: unexpected type %T", name, v.Values)
	}
	return out, nil
}

func stringAttrs(am api.AttributeMap) map[string]string {
	out := make(map[string]string)
	if am == nil {
		return out
	}
	for _, k := range am.Keys() {
		v, ok := am.Get(k)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// parseStormID reverses domain.StormID.String ("al152017").
func parseStormID(s string) domain.StormID {
	if len(s) != 8 {
		return domain.StormID{}
	}
	number, err := strconv.Atoi(s[2:4])
	if err != nil {
		return domain.StormID{}
	}
	year, err := strconv.Atoi(s[4:])
	if err != nil {
		return domain.StormID{}
	}
	return domain.StormID{Basin: s[:2], Number: number, Year: year}
}
