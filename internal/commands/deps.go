package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samarachi/bank-agent/internal/adapters/gemini"
	"github.com/samarachi/bank-agent/internal/adapters/openaillm"
	"github.com/samarachi/bank-agent/internal/adapters/permit"
	"github.com/samarachi/bank-agent/internal/adapters/store/memory"
	"github.com/samarachi/bank-agent/internal/adapters/store/sqlite"
	"github.com/samarachi/bank-agent/internal/agent"
	"github.com/samarachi/bank-agent/internal/audit"
	"github.com/samarachi/bank-agent/internal/config"
	"github.com/samarachi/bank-agent/internal/ports"
)

// loadConfig reads the config file named by --config and applies env
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// newStore builds the configured store. The returned close func is non-nil
// for backends that hold resources.
func newStore(cfg *config.Config) (ports.Store, func() error, error) {
	switch cfg.Store.Driver {
	case "memory":
		return memory.NewSeeded(), nil, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newLLM(cfg *config.Config) (ports.LLM, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	case config.ProviderOpenAI:
		return openaillm.New(openaillm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

// newAgent assembles the agent and its dependencies from config.
func newAgent(cfg *config.Config) (*agent.Agent, ports.Store, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	authz, err := permit.New(cfg.Permit.APIKey, cfg.Permit.PDPURL)
	if err != nil {
		closeIfSet(closeStore)
		return nil, nil, nil, err
	}

	llm, err := newLLM(cfg)
	if err != nil {
		closeIfSet(closeStore)
		return nil, nil, nil, err
	}

	agentCfg := agent.Config{
		VerifyURL:     cfg.VerifyURL,
		MaxToolRounds: cfg.LLM.MaxToolRounds,
	}
	if cfg.Audit.Path != "" {
		agentCfg.Auditor = audit.NewLog(cfg.Audit.Path)
	}

	return agent.New(llm, authz, store, agentCfg), store, closeStore, nil
}

func closeIfSet(close func() error) {
	if close != nil {
		_ = close()
	}
}
