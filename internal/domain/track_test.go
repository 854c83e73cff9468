package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obsAt(hour int, vmax float64) Observation {
	return Observation{
		Basin:         "AL",
		CycloneNumber: 15,
		Time:          time.Date(2017, 9, 20, hour, 0, 0, 0, time.UTC),
		Lat:           18,
		Lon:           -65.6,
		MaxWind:       vmax,
		MaxWindRad:    15 * MilesToMeters,
	}
}

func TestNewTrack_SortsByTime(t *testing.T) {
	track := NewTrack([]Observation{obsAt(12, 1), obsAt(0, 2), obsAt(6, 3)})

	require.Equal(t, 3, track.Len())
	assert.Equal(t, []time.Time{
		time.Date(2017, 9, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2017, 9, 20, 6, 0, 0, 0, time.UTC),
		time.Date(2017, 9, 20, 12, 0, 0, 0, time.UTC),
	}, track.Times())
	assert.Equal(t, 2.0, track.At(0).MaxWind)
}

func TestNewTrack_LastRowWinsForRepeatedTimestamp(t *testing.T) {
	track := NewTrack([]Observation{obsAt(6, 10), obsAt(0, 5), obsAt(6, 20), obsAt(6, 30)})

	require.Equal(t, 2, track.Len())
	assert.Equal(t, 5.0, track.At(0).MaxWind)
	assert.Equal(t, 30.0, track.At(1).MaxWind)
}

func TestNewTrack_FromParsedRadiiRows(t *testing.T) {
	// One timestamp reported three times, once per wind-radii threshold.
	text := bdeckRow("2017092006", "180N", "656W", "135", "34", "15", "10") + "\n" +
		bdeckRow("2017092006", "180N", "656W", "135", "50", "15", "10") + "\n" +
		bdeckRow("2017092006", "180N", "656W", "135", "64", "20", "10") + "\n" +
		bdeckRow("2017092012", "182N", "662W", "120", "34", "20", "10") + "\n"
	recs, err := parseString(t, text)
	require.NoError(t, err)

	track := NewTrack(recs)
	require.Equal(t, 2, track.Len())
	assert.Equal(t, 64, track.At(0).RadiiKt)
	assert.InDelta(t, 20*MilesToMeters, track.At(0).MaxWindRad, 1e-6)
	assert.Equal(t, 3, track.At(0).Line)
}

func TestNewTrack_Empty(t *testing.T) {
	track := NewTrack(nil)
	assert.Equal(t, 0, track.Len())
	assert.Empty(t, track.Times())
	assert.True(t, track.StormID().IsZero())
	assert.Empty(t, track.StormName())
}

func TestTrack_ObservationsIsCopy(t *testing.T) {
	track := NewTrack([]Observation{obsAt(0, 1)})
	obs := track.Observations()
	obs[0].MaxWind = 99
	assert.Equal(t, 1.0, track.At(0).MaxWind)
}

func TestTrack_StormIdentity(t *testing.T) {
	first := obsAt(0, 1)
	first.StormName = "FIFTEEN"
	second := obsAt(6, 1)
	second.StormName = "MARIA"
	third := obsAt(12, 1)

	track := NewTrack([]Observation{third, second, first})

	id := track.StormID()
	assert.Equal(t, "al152017", id.String())
	assert.Equal(t, "bal152017.dat.gz", id.FileName())
	assert.Equal(t, "MARIA", track.StormName())
}
