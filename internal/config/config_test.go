package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json5")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Name != "openai" {
		t.Errorf("provider = %q", cfg.Provider.Name)
	}
	if cfg.Limits.MaxToolRounds != 8 {
		t.Errorf("max_tool_rounds = %d", cfg.Limits.MaxToolRounds)
	}
	if cfg.Observer.Location != "Stilwell, KS" {
		t.Errorf("observer = %q", cfg.Observer.Location)
	}
}

func TestLoad_JSON5WithComments(t *testing.T) {
	path := writeConfig(t, `{
		// point at a local proxy
		provider: { name: "openai", api_base: "http://localhost:8080/v1", model: "test-model" },
		limits: { max_tool_rounds: 3 },
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.APIBase != "http://localhost:8080/v1" {
		t.Errorf("api_base = %q", cfg.Provider.APIBase)
	}
	if cfg.Limits.MaxToolRounds != 3 {
		t.Errorf("max_tool_rounds = %d", cfg.Limits.MaxToolRounds)
	}
	// Fields the file does not set keep their defaults.
	if cfg.Observer.Timezone != "America/Chicago" {
		t.Errorf("timezone = %q", cfg.Observer.Timezone)
	}
}

func TestLoad_MalformedIsConfigurationError(t *testing.T) {
	path := writeConfig(t, `{provider: `)
	_, err := Load(path)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestLoad_BadGuardAction(t *testing.T) {
	path := writeConfig(t, `{guard: {action: "explode"}}`)
	_, err := Load(path)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestResolveAgent(t *testing.T) {
	cfg := Default()
	cfg.Provider.Model = "base-model"
	cfg.Agents.Defaults.SystemPrompt = "you are nightwatch"
	cfg.Agents.List["planner"] = AgentSpec{Model: "big-model"}

	spec := cfg.ResolveAgent("planner")
	if spec.Model != "big-model" {
		t.Errorf("model = %q", spec.Model)
	}
	if spec.SystemPrompt != "you are nightwatch" {
		t.Errorf("prompt should inherit from defaults, got %q", spec.SystemPrompt)
	}

	spec = cfg.ResolveAgent("unknown")
	if spec.Model != "base-model" {
		t.Errorf("fallback model = %q", spec.Model)
	}
}

func TestResolveCredential(t *testing.T) {
	cfg := Default()
	t.Setenv("NIGHTWATCH_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := cfg.ResolveCredential(); err == nil {
		t.Fatal("expected error with no credential anywhere")
	}

	cfg.Provider.APIKey = "from-file"
	key, err := cfg.ResolveCredential()
	if err != nil || key != "from-file" {
		t.Fatalf("key = %q, err = %v", key, err)
	}

	t.Setenv("OPENAI_API_KEY", "from-openai-env")
	key, _ = cfg.ResolveCredential()
	if key != "from-openai-env" {
		t.Errorf("env should win over file, got %q", key)
	}

	t.Setenv("NIGHTWATCH_API_KEY", "from-nightwatch-env")
	key, _ = cfg.ResolveCredential()
	if key != "from-nightwatch-env" {
		t.Errorf("NIGHTWATCH_API_KEY should win, got %q", key)
	}
}

func TestNormalizeAgentID(t *testing.T) {
	cases := map[string]string{
		"":             "default",
		"  ":           "default",
		"Planner":      "planner",
		"My Agent!":    "my-agent",
		"--weird--":    "weird",
		"ok_name-1":    "ok_name-1",
	}
	for in, want := range cases {
		if got := NormalizeAgentID(in); got != want {
			t.Errorf("NormalizeAgentID(%q) = %q, want %q", in, got, want)
		}
	}
}
