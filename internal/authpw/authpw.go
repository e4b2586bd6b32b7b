// Package authpw provides password hashing and registration validation.
package authpw

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	handleRe = regexp.MustCompile(`^[a-z0-9_]{3,24}$`)
	emailRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeEmail lowercases and trims an email address. Blacklist checks and
// uniqueness checks compare normalized addresses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeHandle lowercases and trims a handle, dropping a leading @.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(handle)), "@")
}

// ValidateRegistration checks the fields of a new account. The handle is
// expected to be normalized already.
func ValidateRegistration(handle, email, password string) error {
	if handle == "" || email == "" || password == "" {
		return errors.New("handle, email, and password are required")
	}
	if !handleRe.MatchString(handle) {
		return errors.New("handle must be 3-24 characters: lowercase letters, digits, underscores")
	}
	if !emailRe.MatchString(email) {
		return errors.New("invalid email address")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
