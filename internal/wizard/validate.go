package wizard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Validation bounds. These are part of the acceptance contract, not
// defaults: the server-side revalidation uses the same values.
const (
	MinAge         = 16
	MaxAge         = 100
	MinVehicleYear = 1900
	MinZipLength   = 5
	MinPhoneDigits = 10
)

// MaxVehicleYear allows next year's models.
func MaxVehicleYear() int {
	return time.Now().Year() + 1
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validateAge(answers map[string]string) []FieldError {
	raw := strings.TrimSpace(answers[FieldAge])
	age, err := strconv.Atoi(raw)
	if raw == "" || err != nil || age < MinAge || age > MaxAge {
		return []FieldError{{
			Field:   FieldAge,
			Message: fmt.Sprintf("Please enter a valid age (%d-%d)", MinAge, MaxAge),
		}}
	}
	return nil
}

func validateState(answers map[string]string) []FieldError {
	state := answers[FieldState]
	if state == "" {
		return []FieldError{{Field: FieldState, Message: "Please select your state"}}
	}
	if !contains(USStates, state) {
		return []FieldError{{Field: FieldState, Message: "Please select a valid state"}}
	}
	return nil
}

func validateZipCode(answers map[string]string) []FieldError {
	zip := strings.TrimSpace(answers[FieldZipCode])
	if zip == "" || len(zip) < MinZipLength {
		return []FieldError{{Field: FieldZipCode, Message: "Please enter a valid ZIP code"}}
	}
	return nil
}

func validateVehicleType(answers map[string]string) []FieldError {
	if answers[FieldVehicleType] == "" {
		return []FieldError{{Field: FieldVehicleType, Message: "Please select your vehicle type"}}
	}
	return nil
}

func validateVehicleYear(answers map[string]string) []FieldError {
	raw := strings.TrimSpace(answers[FieldVehicleYear])
	year, err := strconv.Atoi(raw)
	max := MaxVehicleYear()
	if raw == "" || err != nil || year < MinVehicleYear || year > max {
		return []FieldError{{
			Field:   FieldVehicleYear,
			Message: fmt.Sprintf("Please enter a valid vehicle year (%d-%d)", MinVehicleYear, max),
		}}
	}
	return nil
}

func validateAccidents(answers map[string]string) []FieldError {
	v := answers[FieldHasRecentAccidents]
	if v != "yes" && v != "no" {
		return []FieldError{{Field: FieldHasRecentAccidents, Message: "Please select an option"}}
	}
	return nil
}

func validateInsurer(answers map[string]string) []FieldError {
	if answers[FieldCurrentInsurer] == "" {
		return []FieldError{{Field: FieldCurrentInsurer, Message: "Please select your current insurance company"}}
	}
	return nil
}

func validateCoverage(answers map[string]string) []FieldError {
	if answers[FieldCoverageType] == "" {
		return []FieldError{{Field: FieldCoverageType, Message: "Please select your coverage type"}}
	}
	return nil
}

func validateOwnership(answers map[string]string) []FieldError {
	if !contains(OwnershipStatuses, answers[FieldOwnershipStatus]) {
		return []FieldError{{Field: FieldOwnershipStatus, Message: "Please select your ownership status"}}
	}
	return nil
}

// validateContact checks every contact field and reports all failures
// at once, so fixing one field cannot hide another.
func validateContact(answers map[string]string) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(answers[FieldFirstName]) == "" {
		errs = append(errs, FieldError{Field: FieldFirstName, Message: "Please enter your first name"})
	}
	if strings.TrimSpace(answers[FieldLastName]) == "" {
		errs = append(errs, FieldError{Field: FieldLastName, Message: "Please enter your last name"})
	}
	if !emailPattern.MatchString(answers[FieldEmail]) {
		errs = append(errs, FieldError{Field: FieldEmail, Message: "Please enter a valid email address"})
	}
	if countDigits(answers[FieldPhone]) < MinPhoneDigits {
		errs = append(errs, FieldError{Field: FieldPhone, Message: "Please enter a valid phone number"})
	}

	return errs
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
