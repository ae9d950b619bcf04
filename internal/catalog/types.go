// Package catalog stores the deep-space-object catalog in SQLite and builds
// the per-observer localized table that planning queries run against.
package catalog

// Object is one catalog entry with its static (epoch J2000) data.
type Object struct {
	ID            string  `yaml:"dso_id" json:"dso_id"`
	Catalog       string  `yaml:"catalog" json:"catalog"`
	Name          string  `yaml:"name" json:"name"`
	RADeg         float64 `yaml:"ra_dd" json:"ra_dd"`
	DecDeg        float64 `yaml:"dec_dd" json:"dec_dd"`
	Type          string  `yaml:"type" json:"type"`
	Class         string  `yaml:"class" json:"class"`
	VisMag        float64 `yaml:"vis_mag" json:"vis_mag"`
	MajAxis       float64 `yaml:"maj_axis" json:"maj_axis"`
	MinAxis       float64 `yaml:"min_axis" json:"min_axis"`
	Size          string  `yaml:"size" json:"size"`
	Constellation string  `yaml:"constellation" json:"constellation"`
	ConstAbbr     string  `yaml:"constellation_abbr" json:"constellation_abbr"`
}

// Localized is a catalog object augmented with the observer-dependent
// fields. Pointer fields are nil when no observer location was available or
// the object never clears the horizon.
type Localized struct {
	Object
	AltitudeDeg *float64 `json:"altitude,omitempty"`
	AzimuthDeg  *float64 `json:"azimuth,omitempty"`
	AirMass     *float64 `json:"air_mass,omitempty"`
	RiseUTC     *string  `json:"rise_time,omitempty"`
	SetUTC      *string  `json:"set_time,omitempty"`
	TransitUTC  *string  `json:"transit_time,omitempty"`
}

// Observer is the context the localized table is built for.
type Observer struct {
	Location     string   `json:"location"`
	LatitudeDeg  *float64 `json:"latitude_deg,omitempty"`
	LongitudeDeg *float64 `json:"longitude_deg,omitempty"`
	Date         string   `json:"observe_date"` // local, "2006-01-02"
	Time         string   `json:"observe_time"` // local wall clock, "15:04"
	Timezone     string   `json:"timezone"`     // IANA name
}

// HasLocation reports whether the observer can localize objects at all.
func (o Observer) HasLocation() bool {
	return o.LatitudeDeg != nil && o.LongitudeDeg != nil
}
