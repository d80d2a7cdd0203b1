// Package secrets hashes and verifies account PINs.
package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const pinLength = 4

var (
	// ErrMismatch is returned by VerifyPIN when the PIN does not match.
	ErrMismatch = errors.New("pin mismatch")
	// ErrInvalidPIN is returned for anything that is not exactly four digits.
	ErrInvalidPIN = errors.New("pin must be exactly 4 digits")
)

// ValidatePIN checks the PIN format.
func ValidatePIN(pin string) error {
	if len(pin) != pinLength {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// HashPIN returns a salted bcrypt hash of pin.
func HashPIN(pin string) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// VerifyPIN compares pin with a hash produced by HashPIN.
func VerifyPIN(hash, pin string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("verify pin: %w", err)
	}
	return nil
}
