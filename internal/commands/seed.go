package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samarachi/bank-agent/internal/adapters/store/memory"
	"github.com/samarachi/bank-agent/internal/adapters/store/sqlite"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the sqlite store with the default documents and demo accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != "sqlite" {
				return errors.New("seed requires store.driver: sqlite (memory stores are pre-seeded)")
			}
			if cfg.Store.Path == "" {
				return errors.New("sqlite store requires store.path")
			}

			db, err := sqlite.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			defaults := memory.NewSeeded()
			docs, err := defaults.ListDocuments(ctx)
			if err != nil {
				return err
			}
			accounts, err := defaults.ListAccounts(ctx)
			if err != nil {
				return err
			}

			if err := db.Seed(ctx, docs, accounts); err != nil {
				return fmt.Errorf("seeding store: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents and %d accounts into %s\n",
				len(docs), len(accounts), cfg.Store.Path)
			return nil
		},
	}
}
