package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acmecorp/auth-service/internal/api/metrics"
	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
)

type OtpHandler struct {
	authService ports.AuthService
}

func NewOtpHandler(authService ports.AuthService) *OtpHandler {
	return &OtpHandler{authService: authService}
}

type otpVerifyRequest struct {
	Otp string `json:"otp"`
}

type otpVerifyResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// Send generates a fresh OTP for the authenticated subject and delivers it
// synchronously, so a delivery failure surfaces as a 500.
//
// @Summary      Send an OTP to the authenticated principal
// @Tags         otp
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     BearerAuth
// @Router       /otp/send [post]
func (h *OtpHandler) Send(c echo.Context) error {
	username, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	if err := h.authService.SendOtp(c.Request().Context(), username); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "OTP sent successfully. It will expire in 5 minutes."})
}

// Show tells an unverified client what to do next.
//
// @Summary      OTP verification prompt
// @Tags         otp
// @Produce      json
// @Success      200  {object}  messageResponse
// @Security     BearerAuth
// @Router       /otp/verify [get]
func (h *OtpHandler) Show(c echo.Context) error {
	if _, _, err := ctxIdentity(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Please enter your OTP"})
}

// Verify validates the submitted OTP and unlocks the protected surface for
// the remainder of the token lifetime.
//
// @Summary      Verify the OTP step-up factor
// @Tags         otp
// @Accept       json
// @Produce      json
// @Param        body  body      otpVerifyRequest  true  "The one-time passcode"
// @Success      200   {object}  otpVerifyResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Security     BearerAuth
// @Router       /otp/verify [post]
func (h *OtpHandler) Verify(c echo.Context) error {
	username, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req otpVerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Otp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "otp is required")
	}

	if err := h.authService.ConfirmOtp(c.Request().Context(), username, req.Otp); err != nil {
		if errors.Is(err, domain.ErrOtpInvalid) {
			metrics.OtpValidationsTotal.WithLabelValues("rejected").Inc()
		}
		return err
	}

	metrics.OtpValidationsTotal.WithLabelValues("confirmed").Inc()
	return c.JSON(http.StatusOK, otpVerifyResponse{Message: "OTP verified successfully", Redirect: "/me"})
}
