// Command swathinspect checks a swath NetCDF file: axes, time bounds and
// attributes, physical range of the wind field, and optionally that the
// field matches a fresh build from the source track.
//
// Usage:
//
//	go run ./cmd/swathinspect \
//	  -file out/swath_output_20170919T1800-20170921T0000.nc \
//	  -track internal/pipeline/testdata/bal152017.dat
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-swath-service/internal/adapter/atcf"
	"github.com/couchcryptid/storm-swath-service/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-swath-service/internal/domain"
	"github.com/couchcryptid/storm-swath-service/internal/observability"
	"github.com/couchcryptid/storm-swath-service/internal/pipeline"
)

// maxPlausibleWind bounds sustained winds in m/s; the strongest recorded
// cyclones stay below 100 m/s.
const maxPlausibleWind = 100.0

// recomputeTolerance is the allowed absolute difference in m/s between the
// stored field and a rebuild.
const recomputeTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "swath NetCDF file to inspect")
	track := flag.String("track", "", "optional b-deck file to rebuild the swath from and compare")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*file, *track))
}

func run(file, track string) int {
	fmt.Println("=== Swath Dataset Inspection ===")
	fmt.Println()

	ds, err := netcdf.Read(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", file, err)
		return 1
	}
	attrs, err := netcdf.ReadAttrs(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read attributes: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateAxes(ds),
		validateAttributes(ds, attrs, file),
		validateWindField(ds),
	}
	if track != "" {
		phases = append(phases, validateRebuild(ds, track))
	}

	// ── Report results ──
	nt, nLat, nLon := ds.Field().Shape()
	fmt.Printf("Shape: time=%d lat=%d lon=%d\n", nt, nLat, nLon)
	fmt.Printf("Time:  %s .. %s\n", ds.TimeMin().Format(time.RFC3339), ds.TimeMax().Format(time.RFC3339))
	s := ds.Summary()
	fmt.Printf("Peak:  %.2f m/s at (%.2f, %.2f) %s\n", s.PeakWind, s.Peak.Lat, s.Peak.Lon, s.PeakTime.Format(time.RFC3339))
	fmt.Println()

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nInspection FAILED.")
	return 1
}

// ── Phases ──

func validateAxes(ds *domain.SwathDataset) *phase {
	p := &phase{name: "Axes"}
	grid := ds.Grid()
	checkAxis(p, "lat", grid.Lats(), -90, 90)
	checkAxis(p, "lon", grid.Lons(), -180, 180)

	times := ds.Times()
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			p.errorf("time[%d]=%s not after time[%d]=%s", i, times[i].Format(time.RFC3339), i-1, times[i-1].Format(time.RFC3339))
		}
	}
	return p
}

func checkAxis(p *phase, name string, axis []float64, lo, hi float64) {
	if len(axis) == 0 {
		p.errorf("%s axis is empty", name)
		return
	}
	if axis[0] < lo || axis[len(axis)-1] > hi {
		p.errorf("%s axis [%g, %g] outside [%g, %g]", name, axis[0], axis[len(axis)-1], lo, hi)
	}
	if len(axis) < 3 {
		return
	}
	step := axis[1] - axis[0]
	for i := 2; i < len(axis); i++ {
		if d := axis[i] - axis[i-1]; math.Abs(d-step) > 1e-6 {
			p.errorf("%s spacing at index %d is %g, want %g", name, i, d, step)
			return
		}
	}
}

func validateAttributes(ds *domain.SwathDataset, attrs map[string]string, file string) *phase {
	p := &phase{name: "Global attributes"}
	for _, key := range []string{domain.AttrTimeMin, domain.AttrTimeMax, domain.AttrFileName, domain.AttrRunID, domain.AttrCreatedAt} {
		if attrs[key] == "" {
			p.errorf("missing attribute %q", key)
		}
	}

	minT, errMin := time.Parse(domain.TimeLabelLayout, attrs[domain.AttrTimeMin])
	maxT, errMax := time.Parse(domain.TimeLabelLayout, attrs[domain.AttrTimeMax])
	switch {
	case errMin != nil || errMax != nil:
		p.errorf("time_min %q / time_max %q do not match layout %s", attrs[domain.AttrTimeMin], attrs[domain.AttrTimeMax], domain.TimeLabelLayout)
	case minT.After(maxT):
		p.errorf("time_min %s is after time_max %s", attrs[domain.AttrTimeMin], attrs[domain.AttrTimeMax])
	case !minT.Equal(ds.TimeMin()) || !maxT.Equal(ds.TimeMax()):
		p.errorf("time bounds %s..%s disagree with time axis", attrs[domain.AttrTimeMin], attrs[domain.AttrTimeMax])
	}

	if got, want := filepath.Base(file), ds.FileName(); got != want {
		p.errorf("file name %q, want %q", got, want)
	}
	if attrs["Conventions"] != netcdf.Conventions {
		p.errorf("Conventions %q, want %q", attrs["Conventions"], netcdf.Conventions)
	}
	return p
}

func validateWindField(ds *domain.SwathDataset) *phase {
	p := &phase{name: "Wind field range"}
	f := ds.Field()
	nt, nLat, nLon := f.Shape()
	for t := range nt {
		for i := range nLat {
			for j := range nLon {
				v := f.At(t, i, j)
				if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > maxPlausibleWind {
					p.errorf("wsp[%d,%d,%d]=%g outside [0, %g]", t, i, j, v, maxPlausibleWind)
					if len(p.errors) >= 10 {
						return p
					}
				}
			}
		}
	}
	return p
}

func validateRebuild(ds *domain.SwathDataset, trackPath string) *phase {
	p := &phase{name: "Rebuild from track"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	ctx := context.Background()

	raw, err := atcf.NewFileSource(trackPath, logger, metrics).FetchTrack(ctx)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	obs, err := domain.ParseBDeck(bytes.NewReader(raw))
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	assembler := pipeline.NewAssembler(0, 0, logger, metrics, clockwork.NewRealClock())
	rebuilt, err := assembler.Build(ctx, domain.NewTrack(obs), ds.Grid())
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	want, got := rebuilt.Field().Values(), ds.Field().Values()
	if len(want) != len(got) {
		p.errorf("rebuilt field has %d values, file has %d", len(want), len(got))
		return p
	}
	var worst float64
	for k := range want {
		worst = math.Max(worst, math.Abs(want[k]-got[k]))
	}
	if worst > recomputeTolerance {
		p.errorf("max difference %g m/s exceeds %g", worst, recomputeTolerance)
	}
	return p
}
