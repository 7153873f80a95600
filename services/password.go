package services

import (
	"errors"
	"fmt"

	"food-ordering-api/apperror"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
	MaxPasswordBytes = 72
)

// validatePassword checks the length bounds a new password must meet.
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.New(apperror.InvalidInput, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return apperror.New(apperror.InvalidInput, fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperror.Wrap(apperror.InvalidInput, err, fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
