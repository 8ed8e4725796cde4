package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acmecorp/auth-service/internal/core/ports"
)

// SessionHandler exposes the authenticated principal's own session state.
type SessionHandler struct {
	confirmations ports.OtpConfirmations
}

func NewSessionHandler(confirmations ports.OtpConfirmations) *SessionHandler {
	return &SessionHandler{confirmations: confirmations}
}

type identityResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Me returns the identity carried by the presented token. Sits behind both
// the token gate and the OTP gate, so reaching it proves full step-up.
//
// @Summary      Current identity
// @Tags         session
// @Produce      json
// @Success      200  {object}  identityResponse
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /me [get]
func (h *SessionHandler) Me(c echo.Context) error {
	username, role, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identityResponse{Username: username, Role: role})
}

// Logout drops the subject's OTP confirmation marker. The token itself stays
// valid until natural expiry (stateless, no revocation list), but protected
// routes demand a fresh step-up afterwards.
//
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	username, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	if err := h.confirmations.Clear(c.Request().Context(), username); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}
