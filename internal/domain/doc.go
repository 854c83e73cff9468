// Package domain models tropical-cyclone best-track observations and the
// radial wind model used to turn them into a wind swath.
//
// # Data Source
//
// Track observations come from the Automated Tropical Cyclone Forecast (ATCF)
// best-track archive maintained by the National Hurricane Center. Each storm
// has one "b-deck" file, e.g. bal152017.dat for Atlantic storm 15 of 2017
// (Maria), available gzip-compressed at https://ftp.nhc.noaa.gov/atcf/archive/.
// The format is documented at
// https://www.nrlmry.navy.mil/atcf_web/docs/database/new/abdeck.txt.
//
// # B-Deck Conventions
//
// Rows are comma-separated with space padding. Only the first 36 columns have
// a fixed meaning; anything after that is user data and is ignored:
//
//	AL, 15, 2017092006,   , BEST,   0, 180N,  656W, 135,  917, HU,  34, NEQ,  130,  120,   80,  100, ...
//
// Time format:
//
//	YYYYMMDDHH in UTC, e.g. "2017092006" = 2017-09-20 06:00 UTC.
//
// Position format:
//
//	Tenths of a degree followed by a hemisphere letter.
//	"180N" = 18.0°N, "656W" = -65.6° (west and south are negative).
//
// Units in the file and their SI conversion:
//
//	Speeds (VMAX, GUSTS, SPEED):           knots        × 0.514444 → m/s
//	Sea heights (MAXSEAS, SEAS):           feet         × 0.3048   → m
//	Radii (RAD1-4, ROUTER, RMW, EYE, SEAS1-4): miles    × 1609.34  → m
//
// Pressures (MSLP, POUTER) stay in hPa. The wind-radii threshold (RAD: 34,
// 50 or 64) is a category label and stays in knots.
//
// Repeated timestamps:
//
//	A storm with several wind-radii thresholds is reported on several rows
//	sharing one timestamp (34 kt, 50 kt, 64 kt quadrants). The last such row
//	in file order drives the wind model for that time. See [NewTrack].
//
// # Wind Model
//
// The swath uses the Jelesnianski (1965) radial profile. Inside the radius
// of maximum wind (RMW) the speed grows as (r/RMW)^1.5; outside it decays as
// (RMW/r)^0.5. The profile is zero at the storm center. See [WindSpeed].
package domain
