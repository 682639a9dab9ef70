// Package authpw checks the site administrator's email and password.
package authpw

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotConfigured      = errors.New("admin sign-in not configured")
)

// Service authenticates a single configured administrator.
type Service struct {
	email        string
	passwordHash []byte
}

// NewService takes the admin email and a bcrypt hash of the password.
func NewService(email, passwordHash string) *Service {
	return &Service{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(strings.TrimSpace(passwordHash)),
	}
}

func (s *Service) IsConfigured() bool {
	return s.email != "" && len(s.passwordHash) > 0
}

// SignIn returns the normalised admin email on success.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	if !s.IsConfigured() {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(normalized), []byte(s.email)) == 1
	// Always run bcrypt so a wrong email costs the same as a wrong password.
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || pwErr != nil {
		return "", ErrInvalidCredentials
	}
	return s.email, nil
}

// HashPassword produces a hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
