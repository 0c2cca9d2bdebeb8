package main

import (
	"fmt"
	"os"

	"github.com/radiusdt/vector-attribution/internal/config"
	"github.com/radiusdt/vector-attribution/internal/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "vector-attribution",
	Short: "Marketing attribution over order touchpoints and ad spend",
	Long: `vector-attribution credits orders to the marketing touchpoints that led to
them under first click, last click, last paid click and linear models, and
reports the result per channel, campaign or ad hierarchy joined with ad spend.

Configuration is read from VECTOR_ATTR_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides VECTOR_ATTR_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, console); overrides VECTOR_ATTR_LOG_FORMAT")
}

// readConfig reads the environment and applies the global flag overrides.
// The result is not yet validated.
func readConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Read()
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	return cfg
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
