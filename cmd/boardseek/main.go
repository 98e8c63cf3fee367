package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quietfold/boardseek/internal/config"
	"github.com/quietfold/boardseek/internal/obslog"
)

var (
	cfg *config.Config

	flagToken     string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "boardseek",
	Short: "Play chess on Lichess from the terminal",
	Long: `boardseek pairs you with an opponent through the Lichess lobby and plays
the game over the Board API: moves are typed as coordinate codes (e2e4,
e7e8q), chat goes to the player room.

A personal API token with the "board:play" scope is required for the online
commands; pass it with --token or LICHESS_TOKEN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.LogFormat = flagLogFormat
		}
		obslog.Init(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		obslog.Sync()
		os.Exit(1)
	}
	obslog.Sync()
}

// resolveToken prefers the flag over the environment. The token is never
// echoed back or written to disk.
func resolveToken() (string, error) {
	if flagToken != "" {
		return flagToken, nil
	}
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	return "", fmt.Errorf(`no API token: set --token or LICHESS_TOKEN (scope "board:play")`)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Lichess API token (overrides LICHESS_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console|json")
	rootCmd.AddCommand(accountCmd, playCmd, localCmd)
}
