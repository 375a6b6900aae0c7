package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Show current dashboard token",
	Long:  `Show the current dashboard access token (for when you've scrolled past it).`,
	RunE:  runOTP,
}

func init() {
	rootCmd.AddCommand(otpCmd)
}

func runOTP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tokenFile := tokenFilePath(cfg.DBPath)

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no server running (token file not found)\nStart the server with: quotefunnel serve")
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	token := string(data)
	if token == "" {
		return fmt.Errorf("token file is empty")
	}

	fmt.Printf("Current dashboard token: %s\n", token)
	fmt.Printf("Dashboard: %s/dashboard?token=%s\n", cfg.PublicURL, token)
	return nil
}

// tokenFilePath returns the token file location, kept alongside the
// database.
func tokenFilePath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), ".quotefunnel-token")
}
