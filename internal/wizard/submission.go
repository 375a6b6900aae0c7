package wizard

import (
	"net/url"
	"strconv"
)

// LeadSubmission is the validated aggregate of all step answers plus
// attribution parsed from the submitting page's query string. It is
// constructed only at the final step, after that step's validation.
type LeadSubmission struct {
	Age                int    `json:"age"`
	State              string `json:"state"`
	ZipCode            string `json:"zipCode"`
	VehicleType        string `json:"vehicleType"`
	VehicleYear        int    `json:"vehicleYear"`
	HasRecentAccidents string `json:"hasRecentAccidents"`
	CurrentInsurer     string `json:"currentInsurer"`
	CoverageType       string `json:"coverageType"`
	OwnershipStatus    string `json:"ownershipStatus"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	UTMSource          string `json:"utmSource,omitempty"`
	UTMMedium          string `json:"utmMedium,omitempty"`
	UTMCampaign        string `json:"utmCampaign,omitempty"`
}

// NewLeadSubmission builds the payload from committed answers. Numeric
// fields were validated by their steps; unparseable values become zero
// rather than panicking, and server-side revalidation rejects them.
func NewLeadSubmission(answers map[string]string, rawQuery string) *LeadSubmission {
	sub := &LeadSubmission{
		State:              answers[FieldState],
		ZipCode:            answers[FieldZipCode],
		VehicleType:        answers[FieldVehicleType],
		HasRecentAccidents: answers[FieldHasRecentAccidents],
		CurrentInsurer:     answers[FieldCurrentInsurer],
		CoverageType:       answers[FieldCoverageType],
		OwnershipStatus:    answers[FieldOwnershipStatus],
		FirstName:          answers[FieldFirstName],
		LastName:           answers[FieldLastName],
		Email:              answers[FieldEmail],
		Phone:              answers[FieldPhone],
	}
	sub.Age, _ = strconv.Atoi(answers[FieldAge])
	sub.VehicleYear, _ = strconv.Atoi(answers[FieldVehicleYear])

	// Attribution is read at submission time, not earlier.
	if values, err := url.ParseQuery(rawQuery); err == nil {
		sub.UTMSource = values.Get("utm_source")
		sub.UTMMedium = values.Get("utm_medium")
		sub.UTMCampaign = values.Get("utm_campaign")
	}
	return sub
}

// Answers converts the submission back into an answers map keyed by
// field name.
func (sub *LeadSubmission) Answers() map[string]string {
	return map[string]string{
		FieldAge:                strconv.Itoa(sub.Age),
		FieldState:              sub.State,
		FieldZipCode:            sub.ZipCode,
		FieldVehicleType:        sub.VehicleType,
		FieldVehicleYear:        strconv.Itoa(sub.VehicleYear),
		FieldHasRecentAccidents: sub.HasRecentAccidents,
		FieldCurrentInsurer:     sub.CurrentInsurer,
		FieldCoverageType:       sub.CoverageType,
		FieldOwnershipStatus:    sub.OwnershipStatus,
		FieldFirstName:          sub.FirstName,
		FieldLastName:           sub.LastName,
		FieldEmail:              sub.Email,
		FieldPhone:              sub.Phone,
	}
}

// ValidateSubmission runs every step's validation against a complete
// payload. The wizard itself trusts earlier steps at submit time; this
// is the server-authoritative check applied to whatever arrives over
// the wire.
func ValidateSubmission(sub *LeadSubmission) []FieldError {
	answers := sub.Answers()
	var errs []FieldError
	for _, step := range Steps() {
		errs = append(errs, step.Validate(answers)...)
	}
	return errs
}
