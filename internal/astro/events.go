package astro

import (
	"time"
)

// horizonAltitude accounts for mean atmospheric refraction at the horizon.
const horizonAltitude = -0.5667

// Events holds the rise/transit/set times of an object for one observing
// day. Times are UTC. Circumpolar objects have no rise or set; objects that
// never clear the horizon have NeverVisible set and no times at all.
type Events struct {
	Rise         *time.Time
	Transit      *time.Time
	Set          *time.Time
	Circumpolar  bool
	NeverVisible bool
}

// sampleStep is the coarse scan step used to bracket horizon crossings and
// the transit. Two minutes keeps the bisection refinement seed well inside
// a single crossing for anything that moves at sidereal rate.
const sampleStep = 2 * time.Minute

// RiseTransitSet scans from the start of the observing day (local midnight)
// across a two-day window, matching the search window the localized catalog
// is built from: a set following a late rise may land on the next calendar
// day.
func RiseTransitSet(raDeg, decDeg, latDeg, lonDeg float64, dayStart time.Time) Events {
	windowEnd := dayStart.Add(48 * time.Hour)

	altAt := func(t time.Time) float64 {
		return AltAz(raDeg, decDeg, latDeg, lonDeg, t).AltitudeDeg
	}

	var ev Events
	var bestAlt float64
	var bestTime time.Time

	prevTime := dayStart
	prevAlt := altAt(prevTime)
	bestAlt = prevAlt
	bestTime = prevTime
	everAbove := prevAlt > horizonAltitude
	everBelow := prevAlt <= horizonAltitude

	for t := dayStart.Add(sampleStep); !t.After(windowEnd); t = t.Add(sampleStep) {
		alt := altAt(t)

		if alt > bestAlt {
			bestAlt = alt
			bestTime = t
		}
		if alt > horizonAltitude {
			everAbove = true
		} else {
			everBelow = true
		}

		// Rising crossing: keep the first one inside the window.
		if ev.Rise == nil && prevAlt <= horizonAltitude && alt > horizonAltitude {
			rise := refineCrossing(altAt, prevTime, t)
			ev.Rise = &rise
		}
		// Setting crossing: keep the first one that follows the rise, so a
		// rise/set pair always brackets one arc. An arc already in progress
		// at the window start is skipped; the 48h window holds a full one.
		if ev.Set == nil && ev.Rise != nil && prevAlt > horizonAltitude && alt <= horizonAltitude {
			set := refineCrossing(altAt, prevTime, t)
			ev.Set = &set
		}

		prevTime = t
		prevAlt = alt
	}

	if !everAbove {
		ev.NeverVisible = true
		return ev
	}

	// Transit: refine around the coarse maximum inside the window.
	transit := refineMaximum(altAt, bestTime.Add(-sampleStep), bestTime.Add(sampleStep))
	ev.Transit = &transit

	if !everBelow {
		ev.Circumpolar = true
		ev.Rise = nil
		ev.Set = nil
	}
	return ev
}

// refineCrossing bisects a bracketed horizon crossing down to one second.
func refineCrossing(altAt func(time.Time) float64, lo, hi time.Time) time.Time {
	loAbove := altAt(lo) > horizonAltitude
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		if (altAt(mid) > horizonAltitude) == loAbove {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi.Truncate(time.Second)
}

// refineMaximum narrows an altitude maximum by ternary search.
func refineMaximum(altAt func(time.Time) float64, lo, hi time.Time) time.Time {
	for hi.Sub(lo) > time.Second {
		third := hi.Sub(lo) / 3
		m1 := lo.Add(third)
		m2 := hi.Add(-third)
		if altAt(m1) < altAt(m2) {
			lo = m1
		} else {
			hi = m2
		}
	}
	return lo.Truncate(time.Second)
}
