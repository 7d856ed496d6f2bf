package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrRefreshTokenExpired = errors.New("refresh token expired, please log in again")
	ErrConfiguration       = errors.New("configuration error")
)

type kind struct {
	err    error
	status int
	reason string
}

var kinds = []kind{
	{ErrValidation, http.StatusBadRequest, "ValidationError"},
	{ErrConflict, http.StatusConflict, "Conflict"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "InvalidCredentials"},
	{ErrUserNotFound, http.StatusUnauthorized, "UserNotFound"},
	{ErrRefreshTokenExpired, http.StatusUnauthorized, "RefreshTokenExpired"},
	{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{ErrForbidden, http.StatusForbidden, "Forbidden"},
	{ErrNotFound, http.StatusNotFound, "NotFound"},
	{ErrConfiguration, http.StatusInternalServerError, "ConfigurationError"},
}

// Classify returns the HTTP status and reason for a domain error.
// ok is false when err does not wrap any known sentinel.
func Classify(err error) (status int, reason string, ok bool) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status, k.reason, true
		}
	}
	return http.StatusInternalServerError, "InternalServerError", false
}

// Message is the caller-facing text for a known sentinel.
func Message(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			if k.err == ErrConfiguration {
				return "internal server error"
			}
			return k.err.Error()
		}
	}
	return "internal server error"
}
