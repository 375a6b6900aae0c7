package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/quotefunnel/quotefunnel/internal/stats"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show variant performance",
	Long:  `Show views, conversions, conversion rates and confidence intervals per variant.`,
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		variants, err := s.ListVariants(ctx)
		if err != nil {
			return fmt.Errorf("failed to list variants: %w", err)
		}
		if len(variants) == 0 {
			fmt.Println("No variants yet. Create one with 'quotefunnel variant create'.")
			return nil
		}

		variantStats, err := s.GetVariantStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		result := stats.Analyze(variants, variantStats)

		// Print table header
		fmt.Println("VARIANT           VIEWS    CONVERSIONS  RATE     95% CI")
		fmt.Println(strings.Repeat("─", 64))

		for i, v := range result.Variants {
			indicator := ""
			if i == result.Leading && len(result.Variants) > 1 {
				indicator = " ← LEADING"
			}
			if v.IsDefault {
				indicator += " (default)"
			}

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower*100, v.CIUpper*100)
			if v.Views == 0 {
				ciStr = "N/A"
			}

			name := v.Name
			if len(name) > 16 {
				name = name[:13] + "..."
			}

			fmt.Printf("%-16s  %-7d  %-11d  %-7s  %s%s\n",
				name,
				v.Views,
				v.Conversions,
				formatPercent(v.Rate),
				ciStr,
				indicator,
			)
		}

		fmt.Println()

		if len(result.Variants) > 1 {
			leadingName := result.Variants[result.Leading].Name
			confPct := result.ConfidenceLevel * 100

			if result.Confident {
				fmt.Printf("Statistical significance: %.1f%% confident \"%s\" is the winner\n", confPct, leadingName)
			} else if confPct >= 90 {
				fmt.Printf("Statistical significance: %.1f%% confident \"%s\" leads (not yet significant)\n", confPct, leadingName)
			} else {
				fmt.Println("Statistical significance: Not enough data to determine a winner")
			}
		}

		return nil
	})
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
