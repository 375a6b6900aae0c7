package cli

import (
	"fmt"

	"github.com/quotefunnel/quotefunnel/internal/server"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the quotefunnel HTTP server.

The server provides:
  - Variant assignment endpoint for the landing page
  - Lead acceptance endpoints (full and express form)
  - Beacon endpoint for form analytics events
  - Dashboard, health check and Prometheus metrics

Example:
  quotefunnel serve --config ./quotefunnel.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	srv := server.New(s, cfg, logger, tokenFilePath(cfg.DBPath))
	return srv.Start()
}
