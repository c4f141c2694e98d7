// Package auth provides password hashing, token issuance and login
// throttling for the platform.
package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePasswordPolicy checks a candidate password against the account
// policy: minimum length plus at least one uppercase letter, lowercase
// letter, digit and special character.
func ValidatePasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.New(apperrors.CodeAuthWeakPassword, "password must be at least 8 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if !upper {
		return apperrors.New(apperrors.CodeAuthWeakPassword, "password must contain an uppercase letter")
	}
	if !lower {
		return apperrors.New(apperrors.CodeAuthWeakPassword, "password must contain a lowercase letter")
	}
	if !digit {
		return apperrors.New(apperrors.CodeAuthWeakPassword, "password must contain a digit")
	}
	if !special {
		return apperrors.New(apperrors.CodeAuthWeakPassword, "password must contain a special character")
	}
	return nil
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", apperrors.New(apperrors.CodeAuthWeakPassword, "password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
