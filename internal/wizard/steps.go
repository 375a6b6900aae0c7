// Package wizard implements the multi-step lead-qualification form:
// an ordered sequence of question steps with per-step validation, a
// session state machine that enforces forward progress only through
// valid answers, and the submission payload handed to lead acceptance.
package wizard

// Field names captured by the form. Answer maps are keyed by these.
const (
	FieldAge                = "age"
	FieldState              = "state"
	FieldZipCode            = "zipCode"
	FieldVehicleType        = "vehicleType"
	FieldVehicleYear        = "vehicleYear"
	FieldHasRecentAccidents = "hasRecentAccidents"
	FieldCurrentInsurer     = "currentInsurer"
	FieldCoverageType       = "coverageType"
	FieldOwnershipStatus    = "ownershipStatus"
	FieldFirstName          = "firstName"
	FieldLastName           = "lastName"
	FieldEmail              = "email"
	FieldPhone              = "phone"
)

// FieldError is a validation failure for a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateFunc checks the answers visible to one step. It returns every
// failing field at once; a step passes only when the result is empty.
type ValidateFunc func(answers map[string]string) []FieldError

// StepDefinition is one screen of the form. Name is used for analytics
// labeling only.
type StepDefinition struct {
	Name     string
	Fields   []string
	Validate ValidateFunc
}

// Steps returns the step sequence in display order. The slice is built
// fresh on each call so callers cannot mutate shared state.
func Steps() []StepDefinition {
	return []StepDefinition{
		{Name: "Age", Fields: []string{FieldAge}, Validate: validateAge},
		{Name: "State", Fields: []string{FieldState}, Validate: validateState},
		{Name: "ZIP Code", Fields: []string{FieldZipCode}, Validate: validateZipCode},
		{Name: "Vehicle Type", Fields: []string{FieldVehicleType}, Validate: validateVehicleType},
		{Name: "Vehicle Year", Fields: []string{FieldVehicleYear}, Validate: validateVehicleYear},
		{Name: "Recent Accidents", Fields: []string{FieldHasRecentAccidents}, Validate: validateAccidents},
		{Name: "Current Insurer", Fields: []string{FieldCurrentInsurer}, Validate: validateInsurer},
		{Name: "Coverage Type", Fields: []string{FieldCoverageType}, Validate: validateCoverage},
		{Name: "Ownership Status", Fields: []string{FieldOwnershipStatus}, Validate: validateOwnership},
		{Name: "Contact Details", Fields: []string{FieldFirstName, FieldLastName, FieldEmail, FieldPhone}, Validate: validateContact},
	}
}

// USStates lists the two-letter state codes offered by the state step.
var USStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// VehicleTypes lists the selectable vehicle categories.
var VehicleTypes = []string{
	"Sedan", "SUV", "Truck", "Van/Minivan", "Coupe", "Convertible",
	"Hatchback", "Wagon", "Sports Car", "Luxury Car",
	"Electric Vehicle", "Hybrid", "Other",
}

// CoverageTypes lists the selectable coverage levels.
var CoverageTypes = []string{
	"Liability Only", "Collision", "Comprehensive", "Full Coverage",
	"Minimum State Required", "Not Sure",
}

// Insurers lists the current-insurer choices, including the two
// catch-all entries at the end.
var Insurers = []string{
	"State Farm", "GEICO", "Progressive", "Allstate", "USAA",
	"Liberty Mutual", "Farmers Insurance", "Nationwide", "Travelers",
	"American Family", "Erie Insurance", "Auto-Owners Insurance",
	"Country Financial", "The Hartford", "Esurance", "MetLife",
	"Safeco", "The General", "21st Century", "AAA", "Amica Mutual",
	"Direct Auto", "Elephant", "Kemper", "Mercury Insurance",
	"Root Insurance", "Other", "No Current Insurance",
}

// OwnershipStatuses lists the selectable ownership answers.
var OwnershipStatuses = []string{"owned", "financed", "leased"}
