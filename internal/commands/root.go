// Package commands wires the bank-agent CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samarachi/bank-agent/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bank-agent",
		Short:   "Permission-guarded banking assistant",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "bank-agent.yaml", "config file path")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newAccountsCommand())
	rootCmd.AddCommand(newDocsCommand())
	rootCmd.AddCommand(newSeedCommand())

	return rootCmd
}
