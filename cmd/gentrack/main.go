// Command gentrack writes a synthetic b-deck track: a storm moving on a
// straight line at constant speed, intensifying to a peak and decaying. The
// output feeds local runs of cmd/swath and test fixtures.
//
// Usage:
//
//	go run ./cmd/gentrack \
//	  -out data/bal992024.dat \
//	  -start 2024091200 -steps 12 -lat 16.0 -lon -62.0 -dlat 0.4 -dlon -0.6
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/storm-swath-service/internal/domain"
)

type trackParams struct {
	basin    string
	number   int
	name     string
	start    time.Time
	steps    int
	interval time.Duration
	lat, lon float64
	dLat     float64
	dLon     float64
	peakKt   float64
	rmwNM    float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path; a .gz suffix gzips the file")
	basin := flag.String("basin", "AL", "two-letter basin code")
	number := flag.Int("number", 99, "cyclone number")
	name := flag.String("name", "TEST", "storm name")
	start := flag.String("start", "2024091200", "first fix, YYYYMMDDHH UTC")
	steps := flag.Int("steps", 8, "number of fixes")
	interval := flag.Duration("interval", 6*time.Hour, "time between fixes")
	lat := flag.Float64("lat", 16.0, "latitude of the first fix")
	lon := flag.Float64("lon", -62.0, "longitude of the first fix")
	dLat := flag.Float64("dlat", 0.4, "latitude change per fix")
	dLon := flag.Float64("dlon", -0.6, "longitude change per fix")
	peak := flag.Float64("peak", 120, "peak sustained wind, kt")
	rmw := flag.Float64("rmw", 20, "radius of maximum wind, n mi")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *steps < 1 {
		return fmt.Errorf("-steps must be positive, got %d", *steps)
	}
	t0, err := time.ParseInLocation("2006010215", *start, time.UTC)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	obs := synthesize(trackParams{
		basin:    strings.ToUpper(*basin),
		number:   *number,
		name:     strings.ToUpper(*name),
		start:    t0,
		steps:    *steps,
		interval: *interval,
		lat:      *lat,
		lon:      *lon,
		dLat:     *dLat,
		dLon:     *dLon,
		peakKt:   *peak,
		rmwNM:    *rmw,
	})

	if err := writeTrack(*out, obs); err != nil {
		return err
	}
	log.Printf("wrote %d rows (%d fixes) to %s", len(obs), *steps, *out)
	return nil
}

// synthesize builds one row per wind-radii threshold reached at each fix,
// the way best tracks repeat a fix for the 34, 50 and 64 kt radii.
func synthesize(p trackParams) []domain.Observation {
	var out []domain.Observation
	for i := range p.steps {
		// Sine-shaped life cycle peaking mid-track.
		phase := math.Pi * float64(i+1) / float64(p.steps+1)
		vmaxKt := math.Round(math.Max(25, p.peakKt*math.Sin(phase))/5) * 5

		here := domain.Point{Lat: p.lat + float64(i)*p.dLat, Lon: p.lon + float64(i)*p.dLon}
		next := domain.Point{Lat: here.Lat + p.dLat, Lon: here.Lon + p.dLon}
		speed := domain.Distance(here, next) / p.interval.Seconds()

		base := domain.Observation{
			Basin:         p.basin,
			CycloneNumber: p.number,
			Time:          p.start.Add(time.Duration(i) * p.interval),
			Tech:          "BEST",
			Lat:           math.Round(here.Lat*10) / 10,
			Lon:           math.Round(here.Lon*10) / 10,
			MaxWind:       vmaxKt * domain.KnotsToMetersPerSecond,
			MinPressure:   math.Round(1010 - 0.9*vmaxKt),
			StormType:     stormType(vmaxKt),
			MaxWindRad:    p.rmwNM * domain.MilesToMeters,
			Direction:     math.Round(heading(here, next)),
			Speed:         math.Round(speed/domain.KnotsToMetersPerSecond) * domain.KnotsToMetersPerSecond,
			StormName:     p.name,
		}

		thresholds := []int{34, 50, 64}
		for _, kt := range thresholds {
			if vmaxKt < float64(kt) && kt != 34 {
				break
			}
			row := base
			row.RadiiKt = kt
			row.WindCode = "NEQ"
			if vmaxKt >= float64(kt) {
				radius := p.rmwNM * (1 + 3*(vmaxKt-float64(kt))/vmaxKt)
				row.WindRadii = [4]float64{
					math.Round(radius*1.2) * domain.MilesToMeters,
					math.Round(radius) * domain.MilesToMeters,
					math.Round(radius*0.8) * domain.MilesToMeters,
					math.Round(radius) * domain.MilesToMeters,
				}
			}
			out = append(out, row)
		}
	}
	return out
}

func stormType(vmaxKt float64) string {
	switch {
	case vmaxKt >= 64:
		return "HU"
	case vmaxKt >= 34:
		return "TS"
	default:
		return "TD"
	}
}

// heading is the initial great-circle bearing from a to b, degrees from north.
func heading(a, b domain.Point) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func writeTrack(path string, obs []domain.Observation) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = zw
	}
	return domain.FormatBDeck(w, obs)
}
