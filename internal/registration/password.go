package registration

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length in runes.
const MinPasswordLength = 8

// Hasher produces a one-way hash of a raw password. The interface exists
// so the CPU-bound bcrypt work can later move behind a worker pool without
// touching the orchestration sequence, and so tests can use a cheap fake.
type Hasher interface {
	Hash(password string) (string, error)
}

// BcryptHasher hashes passwords with bcrypt. The zero value uses
// bcrypt.DefaultCost (10), which adds tens of milliseconds of CPU per
// call — an accepted, bounded cost at registration volume.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

// validatePassword enforces the password policy on the trimmed password.
func validatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	return nil
}
