package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"blackbox/api/internal/auth"
	"blackbox/api/internal/authpw"
	"blackbox/api/internal/contact"
	"blackbox/api/internal/content"
	"blackbox/api/internal/export"
	"blackbox/api/internal/gitrepo"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *contact.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", "Validation error", validationErr.Fields
	}
	switch {
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, content.ErrMalformedDocument):
		return http.StatusBadGateway, "MALFORMED_DOCUMENT", "Content could not be displayed", nil
	case errors.Is(err, content.ErrRetrievalFailed):
		return http.StatusBadGateway, "RETRIEVAL_FAILED", "Content is temporarily unavailable, try again", nil
	case errors.Is(err, gitrepo.ErrInvalidSlug):
		return http.StatusBadRequest, "INVALID_SLUG", "Invalid slug", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "INVALID_FORMAT", "format must be 'html', 'pdf' or 'docx'", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export format is not available on this server", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrNotConfigured):
		return http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Admin sign-in is not configured", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
