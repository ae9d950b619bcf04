package tools

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nightwatch-astro/nightwatch/internal/astro"
)

//go:embed gear.yaml
var gearYAML []byte

// Telescope and Camera carry the optical specs a session plan needs:
// focal length and f-ratio to size the field, sensor and pixel geometry
// to match it.
type Telescope struct {
	Name          string   `yaml:"name" json:"name"`
	Aliases       []string `yaml:"aliases" json:"-"`
	FocalLengthMM float64  `yaml:"focal_length_mm" json:"focal_length_mm"`
	FRatio        float64  `yaml:"f_ratio" json:"f_ratio"`
}

type Camera struct {
	Name      string   `yaml:"name" json:"name"`
	Aliases   []string `yaml:"aliases" json:"-"`
	SensorWMM float64  `yaml:"sensor_w_mm" json:"sensor_w_mm"`
	SensorHMM float64  `yaml:"sensor_h_mm" json:"sensor_h_mm"`
	PixelUM   float64  `yaml:"pixel_um" json:"pixel_um"`
}

type gearCatalog struct {
	Telescopes []Telescope `yaml:"telescopes"`
	Cameras    []Camera    `yaml:"cameras"`
}

var (
	gearOnce sync.Once
	gear     gearCatalog
	gearErr  error
)

func loadGear() (gearCatalog, error) {
	gearOnce.Do(func() {
		gearErr = yaml.Unmarshal(gearYAML, &gear)
	})
	return gear, gearErr
}

// EquipmentTool resolves loose telescope and camera names ("RASA 8",
// "ZWO 2600") into concrete optical specifications from the embedded
// gear catalog.
type EquipmentTool struct{}

func NewEquipmentTool() *EquipmentTool { return &EquipmentTool{} }

func (t *EquipmentTool) Name() string { return "lookup_equipment" }

func (t *EquipmentTool) Description() string {
	return "Looks up telescope and camera specifications by name. Returns focal length and f-ratio for telescopes, sensor dimensions and pixel size for cameras. " +
		"When both are given, also returns framing: pixel scale in arcsec/px, field of view in arcminutes, and, if target_size_arcmin is set, " +
		"how much of the frame the target fills as a percentage (over 100 means it overflows)."
}

func (t *EquipmentTool) Parameters() *Schema {
	return &Schema{
		Properties: map[string]Property{
			"telescope":          {Type: "string", Description: "Telescope name or nickname, e.g. \"RASA 8\". Optional."},
			"camera":             {Type: "string", Description: "Camera name or nickname, e.g. \"ZWO 2600\". Optional."},
			"target_size_arcmin": {Type: "number", Description: "Major axis of the intended target in arcminutes, for sensor coverage. Optional."},
		},
	}
}

func (t *EquipmentTool) Execute(ctx context.Context, args map[string]any) *Result {
	catalog, err := loadGear()
	if err != nil {
		return ErrorResult(&ExecutionError{Tool: t.Name(), Err: fmt.Errorf("load gear catalog: %w", err)})
	}

	out := map[string]any{}
	var scope *Telescope
	var cam *Camera
	if q, ok := args["telescope"].(string); ok && q != "" {
		scope = findTelescope(catalog.Telescopes, q)
		if scope == nil {
			return ErrorResult(&ExecutionError{Tool: t.Name(), Err: fmt.Errorf("no telescope matching %q", q)})
		}
		out["telescope"] = scope
	}
	if q, ok := args["camera"].(string); ok && q != "" {
		cam = findCamera(catalog.Cameras, q)
		if cam == nil {
			return ErrorResult(&ExecutionError{Tool: t.Name(), Err: fmt.Errorf("no camera matching %q", q)})
		}
		out["camera"] = cam
	}
	if len(out) == 0 {
		return ErrorResult(&InvalidArgumentsError{Tool: t.Name(), Field: "telescope", Reason: "provide a telescope or camera name"})
	}
	if scope != nil && cam != nil {
		out["framing"] = framingFor(scope, cam, args)
	}

	body, err := json.Marshal(out)
	if err != nil {
		return ErrorResult(&ExecutionError{Tool: t.Name(), Err: err})
	}
	return UserResult(string(body))
}

// framingFor reports what the scope/camera pair sees: pixel scale, field
// of view, and how much of the frame the intended target fills.
func framingFor(scope *Telescope, cam *Camera, args map[string]any) map[string]any {
	wAmin, hAmin := astro.SensorFOVArcmin(scope.FocalLengthMM, cam.SensorWMM, cam.SensorHMM, cam.PixelUM)
	framing := map[string]any{
		"pixel_scale_arcsec": round2(astro.PixelScale(scope.FocalLengthMM, cam.PixelUM)),
		"fov_w_arcmin":       round2(wAmin),
		"fov_h_arcmin":       round2(hAmin),
	}
	if size, ok := args["target_size_arcmin"].(float64); ok && size > 0 {
		framing["target_coverage_percent"] = astro.SensorCoverage(size, wAmin, hAmin)
	}
	return framing
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func findTelescope(scopes []Telescope, query string) *Telescope {
	q := strings.ToLower(strings.TrimSpace(query))
	for i := range scopes {
		if gearMatches(q, scopes[i].Name, scopes[i].Aliases) {
			return &scopes[i]
		}
	}
	return nil
}

func findCamera(cams []Camera, query string) *Camera {
	q := strings.ToLower(strings.TrimSpace(query))
	for i := range cams {
		if gearMatches(q, cams[i].Name, cams[i].Aliases) {
			return &cams[i]
		}
	}
	return nil
}

// gearMatches accepts a case-insensitive substring hit in either
// direction, so both "rasa" and "Celestron RASA 8 f/2" find the entry.
func gearMatches(q, name string, aliases []string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, q) || strings.Contains(q, lower) {
		return true
	}
	for _, a := range aliases {
		al := strings.ToLower(a)
		if strings.Contains(al, q) || strings.Contains(q, al) {
			return true
		}
	}
	return false
}
