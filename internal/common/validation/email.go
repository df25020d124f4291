package validation

import (
	"fmt"
	"strings"
)

// ValidateEmail checks the local@domain.tld shape: non-empty local and domain
// parts, with at least one dot in the domain. Anything stricter belongs to a
// confirmation email, not to form validation.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("invalid email format")
	}
	if len(parts[0]) == 0 || len(parts[1]) == 0 {
		return fmt.Errorf("invalid email format")
	}
	if !strings.Contains(parts[1], ".") {
		return fmt.Errorf("invalid email domain")
	}
	if strings.ContainsAny(email, " \t\n") {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// IsValidEmail is the boolean convenience form of ValidateEmail.
func IsValidEmail(email string) bool {
	return ValidateEmail(email) == nil
}
