package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acmecorp/auth-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return http.StatusNotFound, "principal not found"
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusConflict, "username already exists"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, "email already exists"
	case errors.Is(err, domain.ErrAccountNotEnabled):
		return http.StatusForbidden, "account not enabled"
	case errors.Is(err, domain.ErrBadCredentials):
		return http.StatusUnauthorized, "bad credentials"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrCodeExpired):
		return http.StatusBadRequest, "verification code expired"
	case errors.Is(err, domain.ErrCodeMismatch):
		return http.StatusBadRequest, "invalid verification code"
	case errors.Is(err, domain.ErrAlreadyVerified):
		return http.StatusBadRequest, "account already verified"
	case errors.Is(err, domain.ErrOtpInvalid):
		return http.StatusUnauthorized, "invalid or expired OTP"
	case errors.Is(err, domain.ErrOtpDispatch):
		return http.StatusInternalServerError, "failed to send OTP"
	case errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrBadSignature),
		errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrSubjectMismatch):
		return http.StatusUnauthorized, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
