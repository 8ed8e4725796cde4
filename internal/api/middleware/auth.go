package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acmecorp/auth-service/internal/api/metrics"
	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
)

// Machine-readable reasons for token rejections, mirrored in the gate
// metrics.
const (
	ReasonExpired   = "ExpiredTokenError"
	ReasonSignature = "BadSignatureError"
	ReasonMalformed = "MalformedTokenError"
)

// rejection is the canonical JSON body for every gate refusal.
type rejection struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// Auth resolves the caller identity from the Authorization header and injects
// it into the request context. Ordered checks:
//
//  1. Bypass list: requests whose path matches a bypass prefix are forwarded
//     unconditionally.
//  2. No Authorization header: forward unauthenticated; downstream
//     authorization decides.
//  3. A presented token that is expired, badly signed or malformed is
//     rejected with 401 and a machine-readable reason; it never forwards.
func Auth(tokens ports.TokenService, bypass ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range bypass {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return reject(c, ReasonMalformed, "/auth/login")
			}

			claims, err := tokens.Validate(parts[1], "")
			if err != nil {
				return reject(c, tokenReason(err), "/auth/login")
			}

			c.Set("username", claims.Subject)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

// RequireAuth refuses requests that reach a protected route without a
// resolved identity.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if username, _ := c.Get("username").(string); username == "" {
				return reject(c, "authentication required", "/auth/login")
			}
			return next(c)
		}
	}
}

func reject(c echo.Context, reason, redirect string) error {
	metrics.GateRejectionsTotal.WithLabelValues(reason).Inc()
	return c.JSON(http.StatusUnauthorized, rejection{Error: reason, Redirect: redirect})
}

func tokenReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, domain.ErrBadSignature):
		return ReasonSignature
	default:
		return ReasonMalformed
	}
}
