package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestGreetTool(t *testing.T) {
	res := NewGreetTool().Execute(context.Background(), map[string]any{"mood": "happy"})
	if res.IsError {
		t.Fatalf("greet failed: %v", res.Err)
	}
	want := "[Happy greeting from tool] Nice to meet you!"
	if res.ForLLM != want {
		t.Errorf("got %q, want %q", res.ForLLM, want)
	}
}

func TestCurrentTimeTool_BadZone(t *testing.T) {
	res := NewCurrentTimeTool("America/Chicago").Execute(context.Background(), map[string]any{"timezone": "Mars/Olympus"})
	if !res.IsError {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestCurrentTimeTool_DefaultZone(t *testing.T) {
	res := NewCurrentTimeTool("America/Chicago").Execute(context.Background(), nil)
	if res.IsError {
		t.Fatalf("current_time failed: %v", res.Err)
	}
	if !strings.Contains(res.ForLLM, "America/Chicago") {
		t.Errorf("output %q does not name the zone", res.ForLLM)
	}
}

func TestToUTCTool(t *testing.T) {
	tool := NewToUTCTool("America/Chicago")
	res := tool.Execute(context.Background(), map[string]any{"date": "2025-12-04", "time": "22:00"})
	if res.IsError {
		t.Fatalf("to_utc failed: %v", res.Err)
	}
	if res.ForLLM != "2025-12-05T04:00:00Z" {
		t.Errorf("got %q", res.ForLLM)
	}

	res = tool.Execute(context.Background(), map[string]any{"date": "2025-12-04", "time": "22:00", "timezone": "UTC"})
	if res.IsError {
		t.Fatalf("to_utc with explicit zone failed: %v", res.Err)
	}
	if res.ForLLM != "2025-12-04T22:00:00Z" {
		t.Errorf("got %q", res.ForLLM)
	}
}

func TestToUTCTool_BadInput(t *testing.T) {
	res := NewToUTCTool("UTC").Execute(context.Background(), map[string]any{"date": "not-a-date", "time": "22:00"})
	if !res.IsError {
		t.Fatal("expected error for malformed date")
	}
}

func TestEquipmentTool_Lookup(t *testing.T) {
	tool := NewEquipmentTool()
	res := tool.Execute(context.Background(), map[string]any{"telescope": "RASA 8", "camera": "ZWO 2600"})
	if res.IsError {
		t.Fatalf("lookup failed: %v", res.Err)
	}

	var out struct {
		Telescope Telescope `json:"telescope"`
		Camera    Camera    `json:"camera"`
	}
	if err := json.Unmarshal([]byte(res.ForLLM), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Telescope.FRatio != 2.0 {
		t.Errorf("RASA 8 f-ratio = %v", out.Telescope.FRatio)
	}
	if out.Camera.PixelUM != 3.76 {
		t.Errorf("ASI 2600 pixel size = %v", out.Camera.PixelUM)
	}
}

func TestEquipmentTool_Framing(t *testing.T) {
	tool := NewEquipmentTool()
	res := tool.Execute(context.Background(), map[string]any{
		"telescope":          "RASA 8",
		"camera":             "ZWO 2600",
		"target_size_arcmin": 178.0, // M31
	})
	if res.IsError {
		t.Fatalf("lookup failed: %v", res.Err)
	}

	var out struct {
		Framing struct {
			PixelScale float64 `json:"pixel_scale_arcsec"`
			FOVW       float64 `json:"fov_w_arcmin"`
			FOVH       float64 `json:"fov_h_arcmin"`
			Coverage   int     `json:"target_coverage_percent"`
		} `json:"framing"`
	}
	if err := json.Unmarshal([]byte(res.ForLLM), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Framing.PixelScale != 1.94 {
		t.Errorf("pixel scale = %v, want 1.94", out.Framing.PixelScale)
	}
	if out.Framing.FOVW < 200 || out.Framing.FOVW > 204 {
		t.Errorf("fov width = %v amin, want about 202", out.Framing.FOVW)
	}
	if out.Framing.Coverage < 100 || out.Framing.Coverage > 115 {
		t.Errorf("M31 coverage = %d%%, want a bit over 100", out.Framing.Coverage)
	}
}

func TestEquipmentTool_NoFramingWithoutBoth(t *testing.T) {
	res := NewEquipmentTool().Execute(context.Background(), map[string]any{"camera": "533mc"})
	if res.IsError {
		t.Fatalf("lookup failed: %v", res.Err)
	}
	if strings.Contains(res.ForLLM, "framing") {
		t.Error("framing reported without a telescope")
	}
}

func TestEquipmentTool_CaseInsensitive(t *testing.T) {
	res := NewEquipmentTool().Execute(context.Background(), map[string]any{"telescope": "rasa"})
	if res.IsError {
		t.Fatalf("lowercase alias failed: %v", res.Err)
	}
}

func TestEquipmentTool_NoMatch(t *testing.T) {
	res := NewEquipmentTool().Execute(context.Background(), map[string]any{"telescope": "Hubble"})
	if !res.IsError {
		t.Fatal("expected error for unknown telescope")
	}
}

func TestEquipmentTool_NoQuery(t *testing.T) {
	res := NewEquipmentTool().Execute(context.Background(), map[string]any{})
	if !res.IsError {
		t.Fatal("expected error when neither field is given")
	}
}
