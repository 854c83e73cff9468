package domain

import (
	"fmt"
	"strings"
	"time"
)

// Point is a latitude/longitude pair in signed decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within [-90,90] x [-180,180].
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Observation is one b-deck row after parsing and unit normalization.
// Speeds are in m/s, distances in meters, sea heights in meters and
// pressures in hPa.
type Observation struct {
	Basin         string
	CycloneNumber int
	Time          time.Time
	TechNum       string
	Tech          string
	Tau           int

	Lat float64
	Lon float64

	MaxWind      float64 // VMAX
	MinPressure  float64 // MSLP
	StormType    string  // TY, e.g. "HU", "TS"
	RadiiKt      int     // RAD: wind-radii threshold category (34, 50, 64)
	WindCode     string  // WINDCODE: quadrant code, e.g. "NEQ"
	WindRadii    [4]float64
	OuterPress   float64 // POUTER
	OuterRadius  float64 // ROUTER
	MaxWindRad   float64 // RMW
	Gusts        float64
	EyeDiameter  float64
	Subregion    string
	MaxSeas      float64
	Initials     string
	Direction    float64 // DIR: heading of motion, degrees
	Speed        float64 // SPEED: translation speed
	StormName    string
	Depth        string
	SeasHeight   float64 // SEAS: sea-height threshold
	SeasCode     string
	SeasRadii    [4]float64
	UserDefined  string

	Line int // 1-based input line, 0 when not parsed from text
}

// Center returns the storm center of the observation.
func (o Observation) Center() Point {
	return Point{Lat: o.Lat, Lon: o.Lon}
}

// StormID identifies one storm in the ATCF archive.
type StormID struct {
	Basin  string // two-letter basin code, e.g. "al", "ep", "wp"
	Number int    // cyclone number within the season
	Year   int
}

// String renders the id as it appears in archive file names, e.g. "al152017".
func (id StormID) String() string {
	return fmt.Sprintf("%s%02d%04d", strings.ToLower(id.Basin), id.Number, id.Year)
}

// FileName returns the gzip-compressed b-deck file name for the storm.
func (id StormID) FileName() string {
	return "b" + id.String() + ".dat.gz"
}

// IsZero reports whether no storm id has been set.
func (id StormID) IsZero() bool {
	return id.Basin == "" && id.Number == 0 && id.Year == 0
}
