package auth

import (
	"branch-pos/internal/apperr"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// HashPassword validates the length and returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Internal(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword compares a plain password with the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
