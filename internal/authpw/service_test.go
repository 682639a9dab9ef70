package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestSignIn(t *testing.T) {
	svc := NewService("Admin@BlkBoxLogic.com", testHash(t, "correct-horse"))
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "admin@blkboxlogic.com", password: "correct-horse"},
		{name: "email case and spaces", email: "  ADMIN@blkboxlogic.com ", password: "correct-horse"},
		{name: "wrong password", email: "admin@blkboxlogic.com", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "wrong email", email: "other@blkboxlogic.com", password: "correct-horse", wantErr: ErrInvalidCredentials},
		{name: "empty", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SignIn(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SignIn() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SignIn() error = %v", err)
			}
			if got != "admin@blkboxlogic.com" {
				t.Fatalf("SignIn() = %q", got)
			}
		})
	}
}

func TestSignInNotConfigured(t *testing.T) {
	svc := NewService("", "")
	if svc.IsConfigured() {
		t.Fatal("empty service should not be configured")
	}
	if _, err := svc.SignIn(context.Background(), "a@b.c", "password"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("SignIn() error = %v, want ErrNotConfigured", err)
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
	hash, err := HashPassword("long enough")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	svc := NewService("a@example.com", hash)
	if _, err := svc.SignIn(context.Background(), "a@example.com", "long enough"); err != nil {
		t.Fatalf("SignIn() with generated hash error = %v", err)
	}
}
