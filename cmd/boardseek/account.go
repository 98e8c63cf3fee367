package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quietfold/boardseek/internal/lichess"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Verify the token and print the account it belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := resolveToken()
		if err != nil {
			return err
		}
		client := lichess.NewClient(lichess.WithBaseURL(cfg.BaseURL))
		acct, err := client.GetAccount(cmd.Context(), token)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", acct.Username)
		return nil
	},
}
