// Package cmd holds the nightwatch CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightwatch-astro/nightwatch/internal/config"
)

var (
	flagConfig  string
	flagVerbose bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nightwatch",
		Short: "Console assistant for planning amateur astronomy sessions",
		Long: "nightwatch is an agent REPL for observation planning. It answers\n" +
			"questions about what is visible tonight by calling into a local deep\n" +
			"space object catalog, localized for your site and time.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(flagVerbose)
		},
		Run: func(cmd *cobra.Command, args []string) {
			// Bare invocation drops into chat.
			runChat("", "", "")
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ~/.nightwatch/config.json5)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(chatCmd())
	cmd.AddCommand(agentCmd())
	cmd.AddCommand(toolsCmd())
	cmd.AddCommand(catalogCmd())
	cmd.AddCommand(doctorCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func resolveConfigPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if env := os.Getenv("NIGHTWATCH_CONFIG"); env != "" {
		return env
	}
	return config.DefaultPath()
}

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
