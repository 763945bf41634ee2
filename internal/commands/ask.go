package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand() *cobra.Command {
	var userID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask the banking assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ag, _, closeStore, err := newAgent(cfg)
			if err != nil {
				return err
			}
			defer closeIfSet(closeStore)

			resp, err := ag.HandleQuery(cmd.Context(), userID, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if asJSON {
				out, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			if resp.CautionNote != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resp.CautionNote)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (email) making the query")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full structured response as JSON")

	return cmd
}
