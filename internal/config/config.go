// Package config loads bank-agent.yaml and applies environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Providers selectable via LLMConfig.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is the top-level bank-agent.yaml configuration.
type Config struct {
	Addr      string       `yaml:"addr"`
	VerifyURL string       `yaml:"verify_url"`
	Permit    PermitConfig `yaml:"permit"`
	LLM       LLMConfig    `yaml:"llm"`
	Store     StoreConfig  `yaml:"store"`
	Audit     AuditConfig  `yaml:"audit"`
}

// PermitConfig points at the policy decision point.
type PermitConfig struct {
	APIKey string `yaml:"api_key"`
	PDPURL string `yaml:"pdp_url"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	MaxToolRounds int    `yaml:"max_tool_rounds"`
}

// StoreConfig selects the document/account store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "memory" or "sqlite"
	Path   string `yaml:"path"`   // sqlite database file
}

// AuditConfig controls the tool-dispatch audit trail.
type AuditConfig struct {
	Path string `yaml:"path"` // empty disables auditing
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Addr: ":8080",
		LLM: LLMConfig{
			Provider: ProviderGemini,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
	}
}

// Load reads a bank-agent.yaml file from disk. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides config values from the environment. PERMIT_KEY and
// PDP_URL are the names the deployment has always used.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PERMIT_KEY"); v != "" {
		c.Permit.APIKey = v
	}
	if v := os.Getenv("PDP_URL"); v != "" {
		c.Permit.PDPURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.Provider == ProviderGemini {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.LLM.Provider == ProviderOpenAI {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("BANK_AGENT_ADDR"); v != "" {
		c.Addr = v
	}
}

// Validate checks that everything an agent run needs is present.
func (c *Config) Validate() error {
	if c.Permit.APIKey == "" {
		return fmt.Errorf("missing Permit API key (set permit.api_key or PERMIT_KEY)")
	}
	if c.Permit.PDPURL == "" {
		return fmt.Errorf("missing PDP URL (set permit.pdp_url or PDP_URL)")
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("missing LLM API key for provider %s", c.LLM.Provider)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite store requires store.path")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// Save writes the config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
