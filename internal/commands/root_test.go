package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samarachi/bank-agent/internal/config"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "ask")
	assert.Contains(t, names, "accounts")
	assert.Contains(t, names, "docs")
	assert.Contains(t, names, "seed")

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "bank-agent.yaml", flag.DefValue)
}

func TestNewStore(t *testing.T) {
	cfg := config.Default()
	store, closeStore, err := newStore(cfg)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Nil(t, closeStore)

	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "bank.db")
	store, closeStore, err = newStore(cfg)
	require.NoError(t, err)
	assert.NotNil(t, store)
	require.NotNil(t, closeStore)
	assert.NoError(t, closeStore())

	cfg.Store.Driver = "redis"
	_, _, err = newStore(cfg)
	assert.Error(t, err)
}

func TestNewLLM(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "k"

	llm, err := newLLM(cfg)
	require.NoError(t, err)
	assert.NotNil(t, llm)

	cfg.LLM.Provider = config.ProviderOpenAI
	llm, err = newLLM(cfg)
	require.NoError(t, err)
	assert.NotNil(t, llm)

	cfg.LLM.Provider = "llama"
	_, err = newLLM(cfg)
	assert.Error(t, err)
}

func TestNewAgent_ValidatesConfig(t *testing.T) {
	cfg := config.Default()
	_, _, _, err := newAgent(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Permit API key")
}

func TestAsk_RequiresUser(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"ask", "hello"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")
}
