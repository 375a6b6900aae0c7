package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/quotefunnel/quotefunnel/internal/assign"
	"github.com/quotefunnel/quotefunnel/internal/distribute"
	"github.com/quotefunnel/quotefunnel/internal/leads"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/quotefunnel/quotefunnel/internal/wizard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Walk through the quote form interactively",
	Long: `Walk through the full ten-step qualification form in the terminal
and submit the resulting lead. Useful for smoke-testing validation and
distribution without a browser.`,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	// Keep the prompt output clean
	logger := zap.NewNop()
	svc := leads.NewService(s,
		assign.New(s, s, logger),
		distribute.NewDistributor(cfg.Networks, logger),
		distribute.NewNotifier(cfg.Telegram, logger),
		logger,
	)

	session := wizard.NewSession(wizard.Steps(), nil)
	total := session.TotalSteps()

	for !session.Submitted() {
		def := session.Current()
		fmt.Printf("\nStep %d/%d: %s\n", session.Step(), total, def.Name)

		input := make(map[string]string)
		for _, field := range def.Fields {
			v, err := promptField(field)
			if err != nil {
				session.Abandon()
				return err
			}
			input[field] = v
		}

		var fieldErrs []wizard.FieldError
		if session.Step() == total {
			meta := leads.Meta{
				SessionID: assign.NewSessionID(),
				UserAgent: "quotefunnel-cli",
			}
			var res wizard.AcceptResult
			res, fieldErrs, err = session.Submit(context.Background(), session.Step(), input, "", svc.Acceptor(meta))
			if err != nil {
				return fmt.Errorf("failed to submit lead: %w", err)
			}
			if len(fieldErrs) == 0 {
				fmt.Printf("\nLead %d submitted.\n", res.LeadID)
			}
		} else {
			fieldErrs, err = session.Advance(session.Step(), input)
			if err != nil {
				return err
			}
		}

		for _, fe := range fieldErrs {
			fmt.Printf("  ✗ %s\n", fe.Message)
		}
	}

	return nil
}

// promptField asks for one field, using a select list where the form
// offers fixed choices and a free prompt otherwise.
func promptField(field string) (string, error) {
	switch field {
	case wizard.FieldState:
		return promptSelect("State", wizard.USStates)
	case wizard.FieldVehicleType:
		return promptSelect("Vehicle type", wizard.VehicleTypes)
	case wizard.FieldHasRecentAccidents:
		return promptSelect("Any accidents in the last 3 years?", []string{"no", "yes"})
	case wizard.FieldCurrentInsurer:
		return promptSelect("Current insurer", wizard.Insurers)
	case wizard.FieldCoverageType:
		return promptSelect("Coverage type", wizard.CoverageTypes)
	case wizard.FieldOwnershipStatus:
		return promptSelect("Ownership status", wizard.OwnershipStatuses)
	default:
		prompt := promptui.Prompt{Label: fieldLabel(field)}
		return prompt.Run()
	}
}

func promptSelect(label string, items []string) (string, error) {
	sel := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
	}
	_, v, err := sel.Run()
	return v, err
}

func fieldLabel(field string) string {
	switch field {
	case wizard.FieldAge:
		return "Age"
	case wizard.FieldZipCode:
		return "ZIP code"
	case wizard.FieldVehicleYear:
		return "Vehicle year"
	case wizard.FieldFirstName:
		return "First name"
	case wizard.FieldLastName:
		return "Last name"
	case wizard.FieldEmail:
		return "Email"
	case wizard.FieldPhone:
		return "Phone"
	}
	return field
}
