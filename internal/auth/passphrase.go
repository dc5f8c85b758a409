package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrWrongPassphrase is returned when a passphrase does not match.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// HashPassphrase hashes a group passphrase. An empty passphrase yields an
// empty hash, which leaves the group open.
func HashPassphrase(passphrase string) (string, error) {
	if passphrase == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing passphrase: %w", err)
	}
	return string(hash), nil
}

// CheckPassphrase compares a passphrase against a group's hash. Any
// passphrase is accepted for an open group.
func CheckPassphrase(hash, passphrase string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase)); err != nil {
		return ErrWrongPassphrase
	}
	return nil
}
