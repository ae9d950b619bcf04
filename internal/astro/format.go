package astro

import (
	"fmt"
	"time"
)

// utcZLayout allows the localized table's event times to be compared
// lexically in SQL.
const utcZLayout = "2006-01-02T15:04:05Z"

// FormatUTCZ renders a UTC instant as an ISO-8601 string with a Z suffix.
func FormatUTCZ(t time.Time) string {
	return t.UTC().Format(utcZLayout)
}

// UTCToLocal converts a UTC ISO-8601 string to a local wall-clock string in
// the given IANA timezone.
func UTCToLocal(iso, tzName string) (string, error) {
	t, err := time.Parse(utcZLayout, iso)
	if err != nil {
		// Tolerate offset-style timestamps as well.
		t, err = time.Parse(time.RFC3339, iso)
		if err != nil {
			return "", fmt.Errorf("parse utc time %q: %w", iso, err)
		}
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", tzName, err)
	}
	return t.In(loc).Format("2006-01-02 15:04:05"), nil
}

// LocalToUTC converts a local date ("2006-01-02") and wall-clock time
// ("15:04" or "15:04:05") in an IANA timezone to a UTC ISO-8601 Z string.
func LocalToUTC(date, clock, tzName string) (string, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", tzName, err)
	}
	var t time.Time
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		t, err = time.ParseInLocation(layout, date+" "+clock, loc)
		if err == nil {
			return FormatUTCZ(t), nil
		}
	}
	return "", fmt.Errorf("invalid date/time: date=%q time=%q", date, clock)
}

// DayStart returns local midnight of the given date in the given timezone.
func DayStart(date, tzName string) (time.Time, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tzName, err)
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}
