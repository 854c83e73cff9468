package domain

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit conversion factors applied to every parsed record.
const (
	KnotsToMetersPerSecond = 0.514444
	FeetToMeters           = 0.3048
	MilesToMeters          = 1609.34
)

const (
	// bdeckColumns is the number of columns with a fixed meaning. Anything
	// after it is free-form user data.
	bdeckColumns = 36
	// bdeckMinColumns covers BASIN through VMAX; shorter rows are rejected.
	bdeckMinColumns = 9

	bdeckTimeLayout = "2006010215"
)

// Column positions of the b-deck schema.
const (
	colBasin = iota
	colCyclone
	colTime
	colTechNum
	colTech
	colTau
	colLat
	colLon
	colVMax
	colMSLP
	colType
	colRad
	colWindCode
	colRad1
	colRad2
	colRad3
	colRad4
	colPOuter
	colROuter
	colRMW
	colGusts
	colEye
	colSubregion
	colMaxSeas
	colInitials
	colDir
	colSpeed
	colStormName
	colDepth
	colSeas
	colSeasCode
	colSeas1
	colSeas2
	colSeas3
	colSeas4
	colUserDefined
)

// ParseBDeck reads b-deck text and returns one normalized Observation per
// row, in input order. Any bad row aborts the parse: the returned error wraps
// ErrMalformedRecord, ErrInvalidTimestamp or ErrInvalidCoordinate and no
// records are returned.
func ParseBDeck(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var out []Observation
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		line, _ := cr.FieldPos(0)

		obs, err := parseRow(fields, line)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}

// parseRow converts the fields of one row. The row collects the first field
// error so the caller sees one precise failure.
func parseRow(fields []string, line int) (Observation, error) {
	if len(fields) < bdeckMinColumns {
		return Observation{}, fmt.Errorf("line %d: %w: got %d fields, need at least %d",
			line, ErrMalformedRecord, len(fields), bdeckMinColumns)
	}
	if len(fields) > bdeckColumns {
		fields = fields[:bdeckColumns]
	}

	ts, err := parseBDeckTime(field(fields, colTime))
	if err != nil {
		return Observation{}, fmt.Errorf("line %d: %w", line, err)
	}
	lat, err := parseCoordinate(field(fields, colLat), 'N', 'S', 90)
	if err != nil {
		return Observation{}, fmt.Errorf("line %d: latitude: %w", line, err)
	}
	lon, err := parseCoordinate(field(fields, colLon), 'E', 'W', 180)
	if err != nil {
		return Observation{}, fmt.Errorf("line %d: longitude: %w", line, err)
	}

	rr := rowReader{fields: fields, line: line}
	obs := Observation{
		Basin:         rr.text(colBasin),
		CycloneNumber: rr.integer(colCyclone, "CY"),
		Time:          ts,
		TechNum:       rr.text(colTechNum),
		Tech:          rr.text(colTech),
		Tau:           rr.integer(colTau, "TAU"),
		Lat:           lat,
		Lon:           lon,
		MaxWind:       rr.quantity(colVMax, "VMAX", KnotsToMetersPerSecond),
		MinPressure:   rr.number(colMSLP, "MSLP"),
		StormType:     rr.text(colType),
		RadiiKt:       rr.integer(colRad, "RAD"),
		WindCode:      rr.text(colWindCode),
		WindRadii: [4]float64{
			rr.quantity(colRad1, "RAD1", MilesToMeters),
			rr.quantity(colRad2, "RAD2", MilesToMeters),
			rr.quantity(colRad3, "RAD3", MilesToMeters),
			rr.quantity(colRad4, "RAD4", MilesToMeters),
		},
		OuterPress:  rr.number(colPOuter, "POUTER"),
		OuterRadius: rr.quantity(colROuter, "ROUTER", MilesToMeters),
		MaxWindRad:  rr.quantity(colRMW, "RMW", MilesToMeters),
		Gusts:       rr.quantity(colGusts, "GUSTS", KnotsToMetersPerSecond),
		EyeDiameter: rr.quantity(colEye, "EYE", MilesToMeters),
		Subregion:   rr.text(colSubregion),
		MaxSeas:     rr.quantity(colMaxSeas, "MAXSEAS", FeetToMeters),
		Initials:    rr.text(colInitials),
		Direction:   rr.quantity(colDir, "DIR", 1),
		Speed:       rr.quantity(colSpeed, "SPEED", KnotsToMetersPerSecond),
		StormName:   rr.text(colStormName),
		Depth:       rr.text(colDepth),
		SeasHeight:  rr.quantity(colSeas, "SEAS", FeetToMeters),
		SeasCode:    rr.text(colSeasCode),
		SeasRadii: [4]float64{
			rr.quantity(colSeas1, "SEAS1", MilesToMeters),
			rr.quantity(colSeas2, "SEAS2", MilesToMeters),
			rr.quantity(colSeas3, "SEAS3", MilesToMeters),
			rr.quantity(colSeas4, "SEAS4", MilesToMeters),
		},
		UserDefined: rr.text(colUserDefined),
		Line:        line,
	}
	if rr.err != nil {
		return Observation{}, rr.err
	}
	return obs, nil
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// rowReader parses typed columns and keeps the first failure.
type rowReader struct {
	fields []string
	line   int
	err    error
}

func (r *rowReader) text(i int) string {
	return field(r.fields, i)
}

func (r *rowReader) fail(name, value, reason string) {
	if r.err == nil {
		r.err = fmt.Errorf("line %d: %w: field %s: %q %s", r.line, ErrMalformedRecord, name, value, reason)
	}
}

// number parses an optional numeric column. Empty means not reported (0).
func (r *rowReader) number(i int, name string) float64 {
	s := r.text(i)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		r.fail(name, s, "is not a number")
		return 0
	}
	return v
}

// quantity parses a non-negative physical quantity and scales it to SI.
func (r *rowReader) quantity(i int, name string, factor float64) float64 {
	v := r.number(i, name)
	if v < 0 {
		r.fail(name, r.text(i), "is negative")
		return 0
	}
	return v * factor
}

func (r *rowReader) integer(i int, name string) int {
	s := r.text(i)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.fail(name, s, "is not an integer")
		return 0
	}
	return v
}

func parseBDeckTime(s string) (time.Time, error) {
	if len(s) != len(bdeckTimeLayout) {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYYMMDDHH", ErrInvalidTimestamp, s)
	}
	ts, err := time.ParseInLocation(bdeckTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, s, err)
	}
	return ts, nil
}

// parseCoordinate converts a token like "175N" (tenths of a degree plus a
// hemisphere letter) to signed decimal degrees.
func parseCoordinate(token string, positive, negative byte, limit float64) (float64, error) {
	if len(token) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, token)
	}
	hemisphere := token[len(token)-1]
	if hemisphere != positive && hemisphere != negative {
		return 0, fmt.Errorf("%w: %q: hemisphere must be %c or %c", ErrInvalidCoordinate, token, positive, negative)
	}
	tenths, err := strconv.ParseFloat(strings.TrimSpace(token[:len(token)-1]), 64)
	if err != nil || tenths < 0 || math.IsNaN(tenths) || math.IsInf(tenths, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, token)
	}
	value := tenths / 10
	if value > limit {
		return 0, fmt.Errorf("%w: %q exceeds %g degrees", ErrInvalidCoordinate, token, limit)
	}
	if hemisphere == negative {
		value = -value
	}
	return value, nil
}

// FormatBDeck writes observations as b-deck rows, converting SI values back
// to the archive units. It is the inverse of ParseBDeck up to rounding.
func FormatBDeck(w io.Writer, observations []Observation) error {
	bw := bufio.NewWriter(w)
	for _, o := range observations {
		fmt.Fprintf(bw, "%2s, %2d, %s, %2s, %4s, %3d, %4s, %5s, %3d, %4d, %2s, %3d, %3s, %4d, %4d, %4d, %4d, %4d, %4d, %3d, %3d, %3d, %3s, %3d, %3s, %3d, %3d, %10s, %1s, %2d, %3s, %4d, %4d, %4d, %4d, %s,\n",
			o.Basin, o.CycloneNumber, o.Time.UTC().Format(bdeckTimeLayout), o.TechNum, o.Tech, o.Tau,
			formatCoordinate(o.Lat, 'N', 'S'), formatCoordinate(o.Lon, 'E', 'W'),
			unscale(o.MaxWind, KnotsToMetersPerSecond), round(o.MinPressure), o.StormType,
			o.RadiiKt, o.WindCode,
			unscale(o.WindRadii[0], MilesToMeters), unscale(o.WindRadii[1], MilesToMeters),
			unscale(o.WindRadii[2], MilesToMeters), unscale(o.WindRadii[3], MilesToMeters),
			round(o.OuterPress), unscale(o.OuterRadius, MilesToMeters), unscale(o.MaxWindRad, MilesToMeters),
			unscale(o.Gusts, KnotsToMetersPerSecond), unscale(o.EyeDiameter, MilesToMeters),
			o.Subregion, unscale(o.MaxSeas, FeetToMeters), o.Initials, round(o.Direction),
			unscale(o.Speed, KnotsToMetersPerSecond), o.StormName, o.Depth,
			unscale(o.SeasHeight, FeetToMeters), o.SeasCode,
			unscale(o.SeasRadii[0], MilesToMeters), unscale(o.SeasRadii[1], MilesToMeters),
			unscale(o.SeasRadii[2], MilesToMeters), unscale(o.SeasRadii[3], MilesToMeters),
			o.UserDefined,
		)
	}
	return bw.Flush()
}

func formatCoordinate(deg float64, positive, negative byte) string {
	hemisphere := positive
	if deg < 0 {
		hemisphere = negative
		deg = -deg
	}
	return fmt.Sprintf("%d%c", round(deg*10), hemisphere)
}

func unscale(v, factor float64) int {
	return round(v / factor)
}

func round(v float64) int {
	return int(math.Round(v))
}
