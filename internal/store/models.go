package store

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// Submission is a persisted contact form entry. Records are append-only:
// nothing updates or deletes them once created.
type Submission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Business    *string   `json:"business"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewSubmission is the validated input for Create. The store assigns ID.
type NewSubmission struct {
	Name        string
	Email       string
	Business    *string
	Message     string
	SubmittedAt time.Time
}

// OptionalString maps blank input to nil.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
