package model

import (
	"errors"
	"net/http"
)

// Domain error taxonomy. Handlers map these to HTTP status codes; the
// realtime layer maps them to dropped events or closed connections.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrRoleMismatch      = errors.New("role mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSignatureInvalid  = errors.New("signature invalid")
)

// HTTPStatus maps a domain error to its response code. Unknown errors are
// internal failures; handlers log them and return a generic body.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrRoleMismatch),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrSignatureInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
