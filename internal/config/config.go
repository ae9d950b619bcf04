// Package config loads and watches the nightwatch configuration file
// (JSON5, so comments and trailing commas are fine).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"

	"github.com/nightwatch-astro/nightwatch/internal/catalog"
)

// ConfigurationError is fatal at startup: the process cannot run without
// a usable model endpoint and credential.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ProviderConfig points at an OpenAI-compatible chat completions endpoint.
type ProviderConfig struct {
	Name           string `json:"name"`
	APIBase        string `json:"api_base"`
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// AgentSpec is one named agent profile.
type AgentSpec struct {
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
}

// AgentsConfig holds the default profile plus named overrides.
type AgentsConfig struct {
	Defaults  AgentSpec            `json:"defaults"`
	List      map[string]AgentSpec `json:"list"`
	DefaultID string               `json:"default_id"`
}

// LimitsConfig bounds a single session turn.
type LimitsConfig struct {
	MaxToolRounds    int `json:"max_tool_rounds"`
	MaxHistoryTokens int `json:"max_history_tokens"`
	ToolRatePerMin   int `json:"tool_rate_per_min"`
}

// GuardConfig controls the prompt-injection scanner.
// Action is one of "off", "log", "warn", "block".
type GuardConfig struct {
	Action string `json:"action"`
}

// CatalogConfig locates the deep space object database.
type CatalogConfig struct {
	DBPath string `json:"db_path"`
}

// ObserverConfig is the default observing site used when the user's
// message names no location of its own.
type ObserverConfig struct {
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Time      string  `json:"time"` // local wall clock, "HH:MM"
}

// ToObserver renders the configured site as a catalog observer context.
func (o ObserverConfig) ToObserver() catalog.Observer {
	lat, lon := o.Latitude, o.Longitude
	return catalog.Observer{
		Location:     o.Location,
		LatitudeDeg:  &lat,
		LongitudeDeg: &lon,
		Time:         o.Time,
		Timezone:     o.Timezone,
	}
}

// EquipmentConfig names the default gear assumed for session planning.
type EquipmentConfig struct {
	Telescope string `json:"telescope"`
	Camera    string `json:"camera"`
}

// ContextPruningConfig tunes how old tool results are trimmed as the
// conversation approaches the model's context window.
type ContextPruningConfig struct {
	Enabled              bool    `json:"enabled"`
	KeepLastAssistants   int     `json:"keep_last_assistants"`
	SoftTrimRatio        float64 `json:"soft_trim_ratio"`
	HardClearRatio       float64 `json:"hard_clear_ratio"`
	MinPrunableToolChars int     `json:"min_prunable_tool_chars"`
}

type Config struct {
	Provider  ProviderConfig        `json:"provider"`
	Agents    AgentsConfig          `json:"agents"`
	Limits    LimitsConfig          `json:"limits"`
	Guard     GuardConfig           `json:"guard"`
	Catalog   CatalogConfig         `json:"catalog"`
	Observer  ObserverConfig        `json:"observer"`
	Equipment EquipmentConfig       `json:"equipment"`
	Pruning   *ContextPruningConfig `json:"context_pruning"`
}

// Default returns the built-in configuration: an OpenAI endpoint and the
// Stilwell, KS backyard site.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:    "openai",
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Agents: AgentsConfig{
			DefaultID: DefaultAgentID,
			List:      map[string]AgentSpec{},
		},
		Limits: LimitsConfig{
			MaxToolRounds:  8,
			ToolRatePerMin: 60,
		},
		Guard: GuardConfig{Action: "warn"},
		Catalog: CatalogConfig{
			DBPath: "~/.nightwatch/dso_data.db",
		},
		Observer: ObserverConfig{
			Location:  "Stilwell, KS",
			Latitude:  38.7076,
			Longitude: -94.7073,
			Timezone:  "America/Chicago",
			Time:      "22:00",
		},
		Equipment: EquipmentConfig{
			Telescope: "Astrophysics 130EDF F6.3",
			Camera:    "ZWO ASI 2600MC Pro",
		},
	}
}

// DefaultPath returns ~/.nightwatch/config.json5.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json5"
	}
	return filepath.Join(home, ".nightwatch", "config.json5")
}

// Load reads the config file at path, layered over the defaults. A missing
// file is not an error; the defaults stand alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandHome(path))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Provider.APIBase == "" {
		return &ConfigurationError{Reason: "provider.api_base is empty"}
	}
	if c.Provider.Model == "" && c.Agents.Defaults.Model == "" {
		return &ConfigurationError{Reason: "no model configured"}
	}
	if c.Limits.MaxToolRounds <= 0 {
		c.Limits.MaxToolRounds = 8
	}
	switch c.Guard.Action {
	case "", "off", "log", "warn", "block":
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("guard.action %q is not one of off/log/warn/block", c.Guard.Action)}
	}
	return nil
}

// ResolveAgent returns the effective profile for an agent name: the named
// entry when one exists, otherwise the defaults. The model falls back to
// the provider's model when neither spec names one.
func (c *Config) ResolveAgent(name string) AgentSpec {
	spec := c.Agents.Defaults
	if name == "" {
		name = c.Agents.DefaultID
	}
	if s, ok := c.Agents.List[NormalizeAgentID(name)]; ok {
		if s.Model != "" {
			spec.Model = s.Model
		}
		if s.SystemPrompt != "" {
			spec.SystemPrompt = s.SystemPrompt
		}
	}
	if spec.Model == "" {
		spec.Model = c.Provider.Model
	}
	return spec
}

// ResolveCredential returns the API key for the model endpoint. The
// environment wins over the config file; absence is fatal.
func (c *Config) ResolveCredential() (string, error) {
	for _, env := range []string{"NIGHTWATCH_API_KEY", "OPENAI_API_KEY"} {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}
	if c.Provider.APIKey != "" {
		return c.Provider.APIKey, nil
	}
	return "", &ConfigurationError{Reason: "no API key: set NIGHTWATCH_API_KEY or OPENAI_API_KEY, or provider.api_key in the config file"}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
