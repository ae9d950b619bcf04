// Package astro converts J2000 equatorial coordinates into the horizontal
// frame of a ground observer: altitude, azimuth, air mass, and the rise,
// transit and set times used to localize the deep-space-object catalog.
package astro

import (
	"math"
	"time"
)

const (
	// MaxUsefulAirmass hides targets sitting in too much atmosphere.
	MaxUsefulAirmass = 2.9

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// j2000 is the J2000.0 epoch: 2000-01-01 12:00:00 UTC.
var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// DaysSinceJ2000 returns the time as fractional days since the J2000.0 epoch.
func DaysSinceJ2000(t time.Time) float64 {
	return t.Sub(j2000).Seconds() / 86400.0
}

// greenwichSiderealTime returns the Greenwich mean sidereal time in degrees.
func greenwichSiderealTime(t time.Time) float64 {
	d := DaysSinceJ2000(t.UTC())
	return normalizeDegrees(280.46061837 + 360.98564736629*d)
}

// localSiderealTime returns the local mean sidereal time in degrees for an
// east-positive longitude.
func localSiderealTime(t time.Time, longitudeDeg float64) float64 {
	return normalizeDegrees(greenwichSiderealTime(t) + longitudeDeg)
}

// Horizontal is a position in the observer's horizontal frame.
type Horizontal struct {
	AltitudeDeg float64
	AzimuthDeg  float64 // from north, clockwise
}

// AltAz converts J2000 RA/Dec (decimal degrees) to altitude/azimuth for the
// given observer latitude/longitude at time t.
func AltAz(raDeg, decDeg, latDeg, lonDeg float64, t time.Time) Horizontal {
	lst := localSiderealTime(t, lonDeg)
	hourAngle := normalizeDegrees(lst-raDeg) * degToRad

	dec := decDeg * degToRad
	lat := latDeg * degToRad

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(hourAngle)
	alt := math.Asin(clamp(sinAlt, -1, 1))

	// Azimuth measured from north, clockwise through east.
	az := math.Atan2(math.Sin(hourAngle), math.Cos(hourAngle)*math.Sin(lat)-math.Tan(dec)*math.Cos(lat))
	azDeg := normalizeDegrees(az*radToDeg + 180.0)

	return Horizontal{
		AltitudeDeg: alt * radToDeg,
		AzimuthDeg:  azDeg,
	}
}

// Airmass returns the relative atmospheric path length for an altitude in
// degrees. Below the horizon the air mass is unbounded and +Inf is returned.
// Low altitudes use the Kasten & Young (1989) refinement instead of the
// plane-parallel sec(z) approximation.
func Airmass(altitudeDeg float64) float64 {
	if altitudeDeg <= 0 {
		return math.Inf(1)
	}
	zenith := (90.0 - altitudeDeg) * degToRad
	if altitudeDeg < 20.0 {
		return 1.0 / (math.Cos(zenith) + 0.50572*math.Pow(altitudeDeg+6.07995, -1.6364))
	}
	return 1.0 / math.Cos(zenith)
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
