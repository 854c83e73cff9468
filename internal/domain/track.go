package domain

import (
	"sort"
	"time"
)

// Track is the time-ordered sequence of observations that drive a swath,
// one per distinct timestamp. It is immutable once built.
type Track struct {
	observations []Observation
}

// NewTrack sorts observations by time and keeps one per timestamp: the last
// row for that timestamp in input order. Rows sharing a timestamp usually
// differ only in their wind-radii quadrant, so the tie-break is positional
// rather than "largest" or "best".
func NewTrack(observations []Observation) Track {
	last := make(map[time.Time]int, len(observations))
	for i, o := range observations {
		last[o.Time.UTC()] = i
	}

	selected := make([]Observation, 0, len(last))
	for i, o := range observations {
		if last[o.Time.UTC()] == i {
			selected = append(selected, o)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Time.Before(selected[j].Time)
	})
	return Track{observations: selected}
}

// Len returns the number of distinct timestamps.
func (t Track) Len() int {
	return len(t.observations)
}

// At returns the driving observation for the i-th timestamp.
func (t Track) At(i int) Observation {
	return t.observations[i]
}

// Times returns the ascending distinct timestamps of the track.
func (t Track) Times() []time.Time {
	times := make([]time.Time, len(t.observations))
	for i, o := range t.observations {
		times[i] = o.Time.UTC()
	}
	return times
}

// Observations returns a copy of the driving observations.
func (t Track) Observations() []Observation {
	out := make([]Observation, len(t.observations))
	copy(out, t.observations)
	return out
}

// StormID derives the archive id from the first observation. The zero id is
// returned for an empty track.
func (t Track) StormID() StormID {
	if len(t.observations) == 0 {
		return StormID{}
	}
	first := t.observations[0]
	return StormID{Basin: first.Basin, Number: first.CycloneNumber, Year: first.Time.Year()}
}

// StormName returns the most recent non-empty storm name. Early rows of a
// track often carry a placeholder such as "INVEST" or "FIFTEEN".
func (t Track) StormName() string {
	for i := len(t.observations) - 1; i >= 0; i-- {
		if name := t.observations[i].StormName; name != "" {
			return name
		}
	}
	return ""
}
