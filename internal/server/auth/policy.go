package auth

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	maxEmailLength   = 254

	passwordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"
)

// NormalizeEmail is applied before every lookup and insert.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail expects an already normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return common.ValidationError("email is required")
	}
	if len(email) > maxEmailLength {
		return common.ValidationError("email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return common.ValidationError("email is invalid")
	}
	return nil
}

// ValidatePassword enforces the complexity policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return common.ValidationError("password must be at least 8 characters")
	}
	if len(password) > maxPasswordBytes {
		return common.ValidationError("password must be at most 72 bytes")
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return common.ValidationError("password must contain an uppercase letter")
	case !lower:
		return common.ValidationError("password must contain a lowercase letter")
	case !digit:
		return common.ValidationError("password must contain a digit")
	case !symbol:
		return common.ValidationError("password must contain a symbol")
	}
	return nil
}

// ParseRegistrationRole accepts the roles open to self-registration.
func ParseRegistrationRole(role string) (models.Role, error) {
	switch r := models.Role(strings.ToLower(strings.TrimSpace(role))); r {
	case models.RolePatient, models.RoleDoctor:
		return r, nil
	}
	return "", common.ValidationError("role must be patient or doctor")
}
