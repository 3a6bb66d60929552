package app

import (
	"errors"
	"fmt"
	"net/http"

	"skyline/api/internal/auth"
	"skyline/api/internal/store"
)

// DomainError is an error with an HTTP status and a client-safe message.
// Handlers map any other error to a generic 500 so internals never leak.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func validationError(format string, args ...any) *DomainError {
	return &DomainError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(message string) *DomainError {
	return &DomainError{Status: http.StatusNotFound, Message: message}
}

func unauthorizedError() *DomainError {
	return &DomainError{Status: http.StatusUnauthorized, Message: "Unauthorized access. Please login."}
}

func invalidCredentialsError() *DomainError {
	return &DomainError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
}

// mapError collapses an error into a status code and a message safe to send
// to the client.
func mapError(err error) (int, string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Message
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "Not found"
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "Unauthorized access. Please login."
	}
	return http.StatusInternalServerError, "Internal server error"
}
