package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nightwatch-astro/nightwatch/internal/astro"
	"github.com/nightwatch-astro/nightwatch/internal/catalog"
)

// search_dso caps its response; the model only needs a session's worth of
// candidates, not the whole catalog.
const maxDSORows = 50

// DSOTool runs read-only SQL against the deep space object catalog after
// localizing it for the observer. The model writes the SELECT; the store
// enforces that nothing but a single SELECT gets through.
type DSOTool struct {
	store    *catalog.Store
	observer catalog.Observer
}

// NewDSOTool binds the tool to a catalog store and the default observer
// used when the model supplies no location of its own.
func NewDSOTool(store *catalog.Store, observer catalog.Observer) *DSOTool {
	return &DSOTool{store: store, observer: observer}
}

func (t *DSOTool) Name() string { return "search_dso" }

func (t *DSOTool) Description() string {
	return "Searches the deep space object catalog with a read-only SQL SELECT against the dso_localized table. " +
		"Columns: dso_id, catalog, name, ra_dd, dec_dd, type, class, vis_mag, maj_axis, min_axis, size, " +
		"constellation, constellation_abbr, altitude, azimuth, air_mass, rise_time, set_time, transit_time. " +
		"Altitude and azimuth are degrees for the observer's time and place; rise/transit/set times are UTC strings. " +
		"Each result also carries rise_local, set_local and transit_local wall-clock times in the observer's timezone. " +
		"Pass latitude, longitude, date, time and timezone to localize for a different observer."
}

func (t *DSOTool) Parameters() *Schema {
	return &Schema{
		Properties: map[string]Property{
			"sql":       {Type: "string", Description: "A single SQL SELECT statement over dso_localized."},
			"latitude":  {Type: "number", Description: "Observer latitude in degrees. Optional."},
			"longitude": {Type: "number", Description: "Observer longitude in degrees. Optional."},
			"date":      {Type: "string", Description: "Local observation date, YYYY-MM-DD. Optional."},
			"time":      {Type: "string", Description: "Local observation time, HH:MM. Optional."},
			"timezone":  {Type: "string", Description: "IANA timezone for the observation. Optional."},
		},
		Required: []string{"sql"},
	}
}

func (t *DSOTool) Execute(ctx context.Context, args map[string]any) *Result {
	query, _ := args["sql"].(string)
	obs := t.observerFromArgs(args)

	if err := t.store.Localize(ctx, obs); err != nil {
		return ErrorResult(&ExecutionError{Tool: t.Name(), Err: fmt.Errorf("localize catalog: %w", err)})
	}

	rows, err := t.store.Search(ctx, query)
	if err != nil {
		return ErrorResult(&ExecutionError{Tool: t.Name(), Err: err})
	}

	truncated := false
	if len(rows) > maxDSORows {
		rows = rows[:maxDSORows]
		truncated = true
	}

	payload := map[string]any{"count": len(rows), "objects": localizeEventTimes(rows, obs.Timezone)}
	if truncated {
		payload["truncated"] = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ErrorResult(&ExecutionError{Tool: t.Name(), Err: err})
	}
	// The JSON blob is model food; the console only sees the tool name.
	return NewResult(string(body))
}

// dsoRow is a catalog row plus the event times converted to the
// observer's wall clock, which is what a session plan actually quotes.
type dsoRow struct {
	catalog.Localized
	RiseLocal    *string `json:"rise_local,omitempty"`
	SetLocal     *string `json:"set_local,omitempty"`
	TransitLocal *string `json:"transit_local,omitempty"`
}

func localizeEventTimes(rows []catalog.Localized, tz string) []dsoRow {
	out := make([]dsoRow, len(rows))
	for i, r := range rows {
		out[i] = dsoRow{Localized: r}
		if tz == "" {
			continue
		}
		out[i].RiseLocal = toLocalClock(r.RiseUTC, tz)
		out[i].SetLocal = toLocalClock(r.SetUTC, tz)
		out[i].TransitLocal = toLocalClock(r.TransitUTC, tz)
	}
	return out
}

func toLocalClock(utc *string, tz string) *string {
	if utc == nil {
		return nil
	}
	local, err := astro.UTCToLocal(*utc, tz)
	if err != nil {
		return nil
	}
	return &local
}

// observerFromArgs starts from the configured default observer and
// overrides whichever fields the model supplied.
func (t *DSOTool) observerFromArgs(args map[string]any) catalog.Observer {
	obs := t.observer
	if lat, ok := args["latitude"].(float64); ok {
		v := lat
		obs.LatitudeDeg = &v
	}
	if lon, ok := args["longitude"].(float64); ok {
		v := lon
		obs.LongitudeDeg = &v
	}
	if d, ok := args["date"].(string); ok && d != "" {
		obs.Date = d
	}
	if tm, ok := args["time"].(string); ok && tm != "" {
		obs.Time = tm
	}
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		obs.Timezone = tz
	}
	return obs
}
