package auth

import (
	"errors"
	"unicode"
)

// MinPasswordLength is the shortest admin password accepted.
const MinPasswordLength = 12

// Password validation errors.
var (
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoNumber    = errors.New("password must contain at least one number")
)

// ValidatePassword checks an admin password against the fixed policy and
// returns every rule it breaks.
func ValidatePassword(password string) error {
	var errs []error

	if len([]rune(password)) < MinPasswordLength {
		errs = append(errs, ErrPasswordTooShort)
	}

	var hasUpper, hasLower, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		}
	}

	if !hasUpper {
		errs = append(errs, ErrPasswordNoUppercase)
	}
	if !hasLower {
		errs = append(errs, ErrPasswordNoLowercase)
	}
	if !hasNumber {
		errs = append(errs, ErrPasswordNoNumber)
	}

	return errors.Join(errs...)
}
