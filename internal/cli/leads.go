package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	leadsCmd.AddCommand(newLeadsListCmd())
	leadsCmd.AddCommand(newLeadsExpressCmd())
	leadsCmd.AddCommand(newLeadsExportCmd())
	rootCmd.AddCommand(leadsCmd)
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and export captured leads",
}

func newLeadsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				leads, err := s.ListLeads(context.Background(), limit)
				if err != nil {
					return fmt.Errorf("failed to list leads: %w", err)
				}
				if len(leads) == 0 {
					fmt.Println("No leads yet.")
					return nil
				}

				fmt.Println("ID    CREATED           NAME                  STATE  VEHICLE     STATUS")
				fmt.Println(strings.Repeat("─", 72))
				for _, l := range leads {
					name := truncate(l.FirstName+" "+l.LastName, 20)
					fmt.Printf("%-5d %-17s %-21s %-6s %-11s %s\n",
						l.ID,
						l.CreatedAt.Format("2006-01-02 15:04"),
						name,
						l.State,
						truncate(l.VehicleType, 10),
						l.Status,
					)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of leads to show")
	return cmd
}

func newLeadsExpressCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "express",
		Short: "List recent express (short form) leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				leads, err := s.ListExpressLeads(context.Background(), limit)
				if err != nil {
					return fmt.Errorf("failed to list express leads: %w", err)
				}
				if len(leads) == 0 {
					fmt.Println("No express leads yet.")
					return nil
				}

				fmt.Println("ID    CREATED           EMAIL                          PHONE")
				fmt.Println(strings.Repeat("─", 64))
				for _, l := range leads {
					fmt.Printf("%-5d %-17s %-30s %s\n",
						l.ID,
						l.CreatedAt.Format("2006-01-02 15:04"),
						truncate(l.Email, 29),
						l.Phone,
					)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of leads to show")
	return cmd
}

func newLeadsExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export leads as CSV",
		Long: `Export all leads as CSV to stdout, or to a file with --out.

Example:
  quotefunnel leads export --out leads.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				leads, err := s.ListLeads(context.Background(), 0)
				if err != nil {
					return fmt.Errorf("failed to list leads: %w", err)
				}

				f := os.Stdout
				if out != "" {
					f, err = os.Create(out)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", out, err)
					}
					defer f.Close()
				}

				w := csv.NewWriter(f)
				header := []string{
					"id", "created_at", "first_name", "last_name", "email", "phone",
					"age", "state", "zip_code", "vehicle_type", "vehicle_year",
					"recent_accidents", "current_insurer", "coverage_type", "ownership_status",
					"utm_source", "utm_medium", "utm_campaign", "status", "sent_to_network",
				}
				if err := w.Write(header); err != nil {
					return fmt.Errorf("failed to write csv: %w", err)
				}
				for _, l := range leads {
					row := []string{
						strconv.FormatInt(l.ID, 10),
						l.CreatedAt.Format("2006-01-02 15:04:05"),
						l.FirstName, l.LastName, l.Email, l.Phone,
						strconv.Itoa(l.Age), l.State, l.ZipCode, l.VehicleType,
						strconv.Itoa(l.VehicleYear),
						l.HasRecentAccidents, l.CurrentInsurer, l.CoverageType, l.OwnershipStatus,
						l.UTMSource, l.UTMMedium, l.UTMCampaign, string(l.Status), l.SentToNetwork,
					}
					if err := w.Write(row); err != nil {
						return fmt.Errorf("failed to write csv: %w", err)
					}
				}
				w.Flush()
				if err := w.Error(); err != nil {
					return fmt.Errorf("failed to write csv: %w", err)
				}

				if out != "" {
					fmt.Printf("Exported %d leads to %s\n", len(leads), out)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "write CSV to this file instead of stdout")
	return cmd
}
