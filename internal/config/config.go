// Package config loads the biocopilot configuration from YAML, with
// defaults for every field and optional hot reload of the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "30m" style strings.
type Duration time.Duration

// UnmarshalYAML parses either a duration string or a bare number of
// nanoseconds.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := unmarshal(&n); err != nil {
		return fmt.Errorf("duration must be a string like \"30m\"")
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LLM holds the model endpoint settings.
type LLM struct {
	Provider  string   `yaml:"provider"`
	APIURL    string   `yaml:"api_url"`
	APIKey    string   `yaml:"api_key"`
	Model     string   `yaml:"model"`
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

// Config holds all configurable parameters.
type Config struct {
	LLM LLM `yaml:"llm"`

	// ProposalTTL bounds how long a pending proposal stays confirmable.
	ProposalTTL Duration `yaml:"proposal_ttl"`
	// SweepInterval is how often expired proposals are collected.
	SweepInterval Duration `yaml:"sweep_interval"`

	// TemplatesDir overlays the builtin pathway templates.
	TemplatesDir string `yaml:"templates_dir"`
	// AuditLog is the decision journal path. Empty disables journaling.
	AuditLog string `yaml:"audit_log"`
	// ExecTimeout bounds each capability handler invocation.
	ExecTimeout Duration `yaml:"exec_timeout"`

	// RiskOverrides forces a risk level per capability name
	// ("auto" or "confirm"). Unknown names are a load error.
	RiskOverrides map[string]string `yaml:"risk_overrides"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLM{
			Provider:  "ollama",
			Model:     "llama3.1",
			MaxTokens: 900,
			Timeout:   Duration(60 * time.Second),
		},
		ProposalTTL:   Duration(time.Hour),
		SweepInterval: Duration(5 * time.Minute),
		ExecTimeout:   Duration(30 * time.Second),
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".biocopilot", "config.yaml")
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.biocopilot/config.yaml. Missing file returns defaults. Invalid YAML
// or an invalid risk override returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Defaults first, YAML overwrites only specified fields.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}
	return cfg, nil
}

// apiKeyFromEnv falls back to environment variables when the config file
// carries no key. BIOCOPILOT_API_KEY wins over the provider-specific name.
func apiKeyFromEnv(provider string) string {
	if key := os.Getenv("BIOCOPILOT_API_KEY"); key != "" {
		return key
	}
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "deepseek":
		return os.Getenv("DEEPSEEK_API_KEY")
	}
	return ""
}

func (c *Config) validate() error {
	for name, level := range c.RiskOverrides {
		if level != "auto" && level != "confirm" {
			return fmt.Errorf("config: risk override for %q must be auto or confirm, got %q", name, level)
		}
	}
	if c.ProposalTTL < 0 || c.SweepInterval < 0 || c.ExecTimeout < 0 {
		return fmt.Errorf("config: durations must not be negative")
	}
	return nil
}

// DefaultYAML returns a commented YAML string for config init.
func DefaultYAML() string {
	return `# biocopilot configuration

# Model endpoint. provider is one of: openai, deepseek, ollama, lmstudio.
# api_url overrides the provider preset; api_key is sent as a Bearer token
# and falls back to BIOCOPILOT_API_KEY (or OPENAI_API_KEY / DEEPSEEK_API_KEY).
llm:
  provider: ollama
  model: llama3.1
  max_tokens: 900
  timeout: 60s

# How long a pending proposal stays confirmable, and how often expired
# proposals are collected.
proposal_ttl: 1h
sweep_interval: 5m

# Directory of *.json pathway templates overlaying the builtin set.
# templates_dir: ~/.biocopilot/templates

# Append-only decision journal (JSONL, hash-chained). Empty disables it.
# audit_log: ~/.biocopilot/decisions.jsonl

# Upper bound for one capability invocation.
exec_timeout: 30s

# Force a risk level per capability ("auto" or "confirm").
# risk_overrides:
#   run_enrichment: confirm
`
}
