package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acmecorp/auth-service/internal/api/metrics"
	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Username         string `json:"username" validate:"required"`
	VerificationCode string `json:"verificationCode" validate:"required,len=6"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signup registers a new user account. The account starts disabled; a
// verification code is emailed to the registered address.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Registration fields"
// @Success      200   {object}  domain.Principal
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// SignupAdmin registers a new administrator. Only admins reach this route.
//
// @Summary      Register a new admin
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Registration fields"
// @Success      200   {object}  domain.Principal
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /admin/signup [post]
func (h *AuthHandler) SignupAdmin(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.authService.SignupAdmin(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Login verifies credentials and returns an access token. A fresh OTP is
// dispatched to the principal's email as a side effect.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginOutcome(err)).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	})
}

// Verify enables a freshly signed-up account.
//
// @Summary      Verify a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyRequest  true  "Username and verification code"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/verify [post]
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.VerifyEmail(c.Request().Context(), req.Username, req.VerificationCode); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "account verified"})
}

// Resend issues a fresh verification code for a not yet enabled account.
//
// @Summary      Resend the verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resendRequest  true  "Registered email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/resend [post]
func (h *AuthHandler) Resend(c echo.Context) error {
	var req resendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "verification code sent"})
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrPrincipalNotFound):
		return "unknown_principal"
	case errors.Is(err, domain.ErrAccountNotEnabled):
		return "not_enabled"
	case errors.Is(err, domain.ErrBadCredentials):
		return "bad_credentials"
	default:
		return "error"
	}
}
