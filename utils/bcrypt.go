package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// HashPassword returns the bcrypt hash stored in users.password.
func HashPassword(s string) (string, error) {
	if len(s) < MinPasswordLength {
		return "", ValidationError("password must be at least %d characters", MinPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports a mismatch as ErrMismatchedPassword and anything else
// (corrupt hash, wrong cost) as-is.
func ComparePassword(hashed string, normal string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatchedPassword
	}
	return err
}

var ErrMismatchedPassword = errors.New("password does not match")
