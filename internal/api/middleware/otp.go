package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/acmecorp/auth-service/internal/core/ports"
)

// RequireOtp enforces the OTP step-up: an authenticated request is admitted
// only when its subject carries a live confirmation marker. Unauthenticated
// requests forward untouched — RequireAuth owns that refusal.
func RequireOtp(confirmations ports.OtpConfirmations) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username, _ := c.Get("username").(string)
			if username == "" {
				return next(c)
			}

			confirmed, err := confirmations.IsConfirmed(c.Request().Context(), username)
			if err != nil {
				return fmt.Errorf("otp gate: %w", err)
			}
			if !confirmed {
				return reject(c, "OTP verification required", "/otp/verify")
			}
			return next(c)
		}
	}
}
