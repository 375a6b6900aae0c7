package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	variantCmd.AddCommand(newVariantCreateCmd())
	variantCmd.AddCommand(newVariantEditCmd())
	variantCmd.AddCommand(variantListCmd)
	variantCmd.AddCommand(newVariantToggleCmd("activate", true))
	variantCmd.AddCommand(newVariantToggleCmd("deactivate", false))
	variantCmd.AddCommand(variantPromoteCmd)
	variantCmd.AddCommand(variantClearDefaultCmd)
	variantCmd.AddCommand(variantDeleteCmd)
	rootCmd.AddCommand(variantCmd)
}

var variantCmd = &cobra.Command{
	Use:   "variant",
	Short: "Manage landing page variants",
}

func newVariantCreateCmd() *cobra.Command {
	var (
		name        string
		headline    string
		subheadline string
		ctaText     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new landing page variant",
		Long: `Create a new variant. With no flags the command prompts for each
field interactively.

Examples:
  quotefunnel variant create
  quotefunnel variant create --name "Urgency" --headline "Save up to 40% today" --cta "Get My Quote"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Prompt for anything not given via flags
			if name == "" {
				v, err := promptRequired("Variant name")
				if err != nil {
					return err
				}
				name = v
			}
			if headline == "" {
				v, err := promptRequired("Headline")
				if err != nil {
					return err
				}
				headline = v
			}
			if ctaText == "" {
				v, err := promptRequired("CTA text")
				if err != nil {
					return err
				}
				ctaText = v
			}

			return withStore(func(s *store.SQLiteStore) error {
				created, err := s.CreateVariant(context.Background(), &store.Variant{
					Name:        name,
					Headline:    headline,
					Subheadline: subheadline,
					CTAText:     ctaText,
					Description: description,
					IsActive:    true,
				})
				if err != nil {
					return fmt.Errorf("failed to create variant: %w", err)
				}

				fmt.Printf("Created variant %d '%s':\n", created.ID, created.Name)
				fmt.Printf("  Headline: %s\n", created.Headline)
				if created.Subheadline != "" {
					fmt.Printf("  Subheadline: %s\n", created.Subheadline)
				}
				fmt.Printf("  CTA: %s\n", created.CTAText)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "variant name")
	cmd.Flags().StringVar(&headline, "headline", "", "headline copy")
	cmd.Flags().StringVar(&subheadline, "subheadline", "", "subheadline copy (optional)")
	cmd.Flags().StringVar(&ctaText, "cta", "", "call-to-action text")
	cmd.Flags().StringVar(&description, "description", "", "internal notes (optional)")

	return cmd
}

func promptRequired(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		},
	}
	return prompt.Run()
}

func newVariantEditCmd() *cobra.Command {
	var (
		name        string
		headline    string
		subheadline string
		ctaText     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a variant's copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVariantID(args[0])
			if err != nil {
				return err
			}
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()
				v, err := s.GetVariant(ctx, id)
				if err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("variant %d not found", id)
					}
					return fmt.Errorf("failed to get variant: %w", err)
				}

				if cmd.Flags().Changed("name") {
					v.Name = name
				}
				if cmd.Flags().Changed("headline") {
					v.Headline = headline
				}
				if cmd.Flags().Changed("subheadline") {
					v.Subheadline = subheadline
				}
				if cmd.Flags().Changed("cta") {
					v.CTAText = ctaText
				}
				if cmd.Flags().Changed("description") {
					v.Description = description
				}

				if err := s.UpdateVariant(ctx, v); err != nil {
					return fmt.Errorf("failed to update variant: %w", err)
				}
				fmt.Printf("Variant %d updated\n", v.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "variant name")
	cmd.Flags().StringVar(&headline, "headline", "", "headline copy")
	cmd.Flags().StringVar(&subheadline, "subheadline", "", "subheadline copy")
	cmd.Flags().StringVar(&ctaText, "cta", "", "call-to-action text")
	cmd.Flags().StringVar(&description, "description", "", "internal notes")

	return cmd
}

var variantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all variants",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.SQLiteStore) error {
			variants, err := s.ListVariants(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list variants: %w", err)
			}
			if len(variants) == 0 {
				fmt.Println("No variants yet. Create one with 'quotefunnel variant create'.")
				return nil
			}

			fmt.Println("ID   NAME              HEADLINE                                  STATE")
			fmt.Println(strings.Repeat("─", 80))
			for _, v := range variants {
				state := "inactive"
				if v.IsActive {
					state = "active"
				}
				if v.IsDefault {
					state += ", default"
				}
				fmt.Printf("%-4d %-17s %-41s %s\n", v.ID, truncate(v.Name, 16), truncate(v.Headline, 40), state)
			}
			return nil
		})
	},
}

func newVariantToggleCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVariantID(args[0])
			if err != nil {
				return err
			}
			return withStore(func(s *store.SQLiteStore) error {
				if err := s.SetVariantActive(context.Background(), id, active); err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("variant %d not found", id)
					}
					return fmt.Errorf("failed to %s variant: %w", verb, err)
				}
				fmt.Printf("Variant %d %sd\n", id, verb)
				return nil
			})
		},
	}
}

var variantPromoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Make a variant the default shown to every visitor",
	Long: `Promote a variant to default. The default overrides bucketing: every
session sees it, regardless of hash. The previous default is cleared in
the same transaction.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseVariantID(args[0])
		if err != nil {
			return err
		}
		return withStore(func(s *store.SQLiteStore) error {
			ctx := context.Background()
			v, err := s.GetVariant(ctx, id)
			if err != nil {
				if err == store.ErrNotFound {
					return fmt.Errorf("variant %d not found", id)
				}
				return fmt.Errorf("failed to get variant: %w", err)
			}
			if err := s.SetDefaultVariant(ctx, id); err != nil {
				return fmt.Errorf("failed to promote variant: %w", err)
			}
			fmt.Printf("Variant %d '%s' is now the default. All sessions will see it.\n", v.ID, v.Name)
			return nil
		})
	},
}

var variantClearDefaultCmd = &cobra.Command{
	Use:   "clear-default",
	Short: "Remove the default override and resume bucketing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.SQLiteStore) error {
			if err := s.ClearDefaultVariant(context.Background()); err != nil {
				return fmt.Errorf("failed to clear default: %w", err)
			}
			fmt.Println("Default cleared. Sessions are bucketed across active variants again.")
			return nil
		})
	},
}

var variantDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a variant and its events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseVariantID(args[0])
		if err != nil {
			return err
		}
		return withStore(func(s *store.SQLiteStore) error {
			if err := s.DeleteVariant(context.Background(), id); err != nil {
				if err == store.ErrNotFound {
					return fmt.Errorf("variant %d not found", id)
				}
				return fmt.Errorf("failed to delete variant: %w", err)
			}
			fmt.Printf("Variant %d deleted\n", id)
			return nil
		})
	},
}

func parseVariantID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid variant id '%s'", arg)
	}
	return id, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
