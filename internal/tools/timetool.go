package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/nightwatch-astro/nightwatch/internal/astro"
)

// CurrentTimeTool reports the current local time for a timezone, defaulting
// to the observer's configured zone.
type CurrentTimeTool struct {
	defaultZone string
}

func NewCurrentTimeTool(defaultZone string) *CurrentTimeTool {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &CurrentTimeTool{defaultZone: defaultZone}
}

func (t *CurrentTimeTool) Name() string { return "current_time" }

func (t *CurrentTimeTool) Description() string {
	return "Returns the current date and time in a given IANA timezone. Defaults to the observer's home timezone when none is given."
}

func (t *CurrentTimeTool) Parameters() *Schema {
	return &Schema{
		Properties: map[string]Property{
			"timezone": {Type: "string", Description: "IANA timezone name, e.g. \"America/Chicago\". Optional."},
		},
	}
}

func (t *CurrentTimeTool) Execute(ctx context.Context, args map[string]any) *Result {
	zone := t.defaultZone
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		zone = tz
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return ErrorResult(&InvalidArgumentsError{Tool: t.Name(), Field: "timezone", Reason: fmt.Sprintf("unknown timezone %q", zone)})
	}
	now := time.Now().In(loc)
	return UserResult(fmt.Sprintf("%s (%s)", now.Format("2006-01-02 15:04:05"), zone))
}

// ToUTCTool converts a local date and clock time in a named timezone into
// the UTC instant strings the catalog stores rise/set times in.
type ToUTCTool struct {
	defaultZone string
}

func NewToUTCTool(defaultZone string) *ToUTCTool {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &ToUTCTool{defaultZone: defaultZone}
}

func (t *ToUTCTool) Name() string { return "to_utc" }

func (t *ToUTCTool) Description() string {
	return "Converts a local date and time in an IANA timezone to a UTC timestamp. Useful for comparing against catalog rise, transit and set times, which are stored in UTC."
}

func (t *ToUTCTool) Parameters() *Schema {
	return &Schema{
		Properties: map[string]Property{
			"date":     {Type: "string", Description: "Local calendar date, YYYY-MM-DD."},
			"time":     {Type: "string", Description: "Local clock time, HH:MM or HH:MM:SS."},
			"timezone": {Type: "string", Description: "IANA timezone name. Optional, defaults to the observer's home timezone."},
		},
		Required: []string{"date", "time"},
	}
}

func (t *ToUTCTool) Execute(ctx context.Context, args map[string]any) *Result {
	date, _ := args["date"].(string)
	clock, _ := args["time"].(string)
	zone := t.defaultZone
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		zone = tz
	}
	utc, err := astro.LocalToUTC(date, clock, zone)
	if err != nil {
		return ErrorResult(&InvalidArgumentsError{Tool: t.Name(), Field: "time", Reason: err.Error()})
	}
	return UserResult(utc)
}
