package astro

import (
	"math"
	"testing"
	"time"
)

func TestAirmass_Zenith(t *testing.T) {
	if got := Airmass(90); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("airmass at zenith = %v, want 1.0", got)
	}
}

func TestAirmass_Secant(t *testing.T) {
	// At 30 degrees altitude the zenith angle is 60 degrees: sec(60) = 2.
	if got := Airmass(30); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("airmass at 30 deg = %v, want 2.0", got)
	}
}

func TestAirmass_LowAltitudeUsesKastenYoung(t *testing.T) {
	got := Airmass(10)
	secant := 1.0 / math.Cos(80.0*degToRad)
	if got >= secant {
		t.Errorf("airmass at 10 deg = %v, expected below plane-parallel %v", got, secant)
	}
	if got < 5.0 || got > 6.0 {
		t.Errorf("airmass at 10 deg = %v, want roughly 5.6", got)
	}
}

func TestAirmass_BelowHorizon(t *testing.T) {
	if got := Airmass(-5); !math.IsInf(got, 1) {
		t.Errorf("airmass below horizon = %v, want +Inf", got)
	}
}

func TestAltAz_PoleStarStaysNearLatitude(t *testing.T) {
	// An object within a degree of the celestial pole sits at an altitude
	// close to the observer's latitude at any time of day.
	lat, lon := 38.7076, -94.7073
	for hour := 0; hour < 24; hour += 3 {
		at := time.Date(2024, 3, 15, hour, 0, 0, 0, time.UTC)
		h := AltAz(37.95, 89.26, lat, lon, at)
		if math.Abs(h.AltitudeDeg-lat) > 1.5 {
			t.Errorf("hour %d: altitude = %v, want within 1.5 of latitude %v", hour, h.AltitudeDeg, lat)
		}
	}
}

func TestAltAz_TransitAltitude(t *testing.T) {
	// At transit an equatorial object culminates at 90 - latitude, due south.
	lat, lon := 38.7076, -94.7073
	dayStart := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	ev := RiseTransitSet(150.0, 0.0, lat, lon, dayStart)
	if ev.Transit == nil {
		t.Fatal("expected a transit time")
	}
	h := AltAz(150.0, 0.0, lat, lon, *ev.Transit)
	if math.Abs(h.AltitudeDeg-(90.0-lat)) > 0.5 {
		t.Errorf("transit altitude = %v, want about %v", h.AltitudeDeg, 90.0-lat)
	}
	if math.Abs(h.AzimuthDeg-180.0) > 2.0 {
		t.Errorf("transit azimuth = %v, want about 180 (south)", h.AzimuthDeg)
	}
}

func TestRiseTransitSet_Circumpolar(t *testing.T) {
	dayStart := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	ev := RiseTransitSet(10.0, 89.0, 38.7076, -94.7073, dayStart)
	if !ev.Circumpolar {
		t.Fatal("object a degree from the pole should be circumpolar from mid-northern latitude")
	}
	if ev.Rise != nil || ev.Set != nil {
		t.Error("circumpolar object should have no rise or set")
	}
	if ev.Transit == nil {
		t.Error("circumpolar object should still transit")
	}
}

func TestRiseTransitSet_NeverVisible(t *testing.T) {
	dayStart := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	ev := RiseTransitSet(10.0, -89.0, 38.7076, -94.7073, dayStart)
	if !ev.NeverVisible {
		t.Fatal("far-southern object should never be visible from mid-northern latitude")
	}
	if ev.Rise != nil || ev.Set != nil || ev.Transit != nil {
		t.Error("never-visible object should carry no event times")
	}
}

func TestRiseTransitSet_Ordering(t *testing.T) {
	dayStart := time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC)
	ev := RiseTransitSet(150.0, 0.0, 38.7076, -94.7073, dayStart)
	if ev.Rise == nil || ev.Set == nil || ev.Transit == nil {
		t.Fatal("equatorial object should rise, transit and set")
	}
	if !ev.Set.After(*ev.Rise) {
		t.Errorf("set %v should follow rise %v", ev.Set, ev.Rise)
	}
	// An equatorial object spends close to half a sidereal day above the horizon.
	up := ev.Set.Sub(*ev.Rise)
	if up < 11*time.Hour || up > 13*time.Hour {
		t.Errorf("time above horizon = %v, want roughly 12h", up)
	}
}
