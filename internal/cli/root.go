// Package cli wires the quotefunnel commands: the server, variant
// administration, results, lead export and an interactive quote
// walkthrough.
package cli

import (
	"os"

	"github.com/quotefunnel/quotefunnel/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "quotefunnel",
	Short: "quotefunnel - lead-qualification funnel with A/B tested landing copy",
	Long: `quotefunnel runs an auto-insurance quote funnel: a ten-step
qualification form, deterministic A/B variant assignment for landing
copy, lead acceptance with webhook distribution, and an admin surface
for variants and leads. Single Go binary, embedded SQLite.

Running without a subcommand starts the server (same as 'quotefunnel serve').`,
	RunE: runServe, // Default action is to start the server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnvOrDefault("QF_CONFIG", "./quotefunnel.yaml"), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the config file and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// newLogger builds the process logger; --verbose lowers the level.
func newLogger() (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapCfg.Build()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
