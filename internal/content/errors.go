package content

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrievalFailed marks transient store failures (network, timeout,
	// bad status, undecodable payload). Callers may retry.
	ErrRetrievalFailed = errors.New("content retrieval failed")
	// ErrNotFound means the store answered but holds no document for the slug.
	ErrNotFound = errors.New("content not found")
	// ErrMalformedDocument means a document is missing required structure.
	ErrMalformedDocument = errors.New("malformed document")
)

// MalformedError describes which document and field failed projection.
type MalformedError struct {
	Variant Variant
	ID      string
	Field   string
	Reason  string
}

func (e *MalformedError) Error() string {
	if e == nil {
		return ""
	}
	id := e.ID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("malformed %s document %s: %s %s", e.Variant, id, e.Field, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedDocument }

// RetrievalError wraps a transport-level failure with the query that caused it.
type RetrievalError struct {
	Variant Variant
	Op      string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Variant, e.Err)
}

func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrievalFailed, e.Err} }

// Retrieval builds a RetrievalError.
func Retrieval(variant Variant, op string, err error) error {
	return &RetrievalError{Variant: variant, Op: op, Err: err}
}
