package wizard

// ValidateExpress checks the reduced two-field payload used by the
// standalone short form. Same contact rules as the final wizard step.
func ValidateExpress(email, phone string) []FieldError {
	var errs []FieldError
	if !emailPattern.MatchString(email) {
		errs = append(errs, FieldError{Field: FieldEmail, Message: "Please enter a valid email address"})
	}
	if countDigits(phone) < MinPhoneDigits {
		errs = append(errs, FieldError{Field: FieldPhone, Message: "Please enter a valid phone number"})
	}
	return errs
}
