package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/acmecorp/auth-service/docs"
	"github.com/acmecorp/auth-service/internal/api/handler"
	"github.com/acmecorp/auth-service/internal/api/middleware"
	"github.com/acmecorp/auth-service/internal/core/domain"
	"github.com/acmecorp/auth-service/internal/core/ports"
)

// Deps bundles the collaborators the router wires into handlers and the
// request gate.
type Deps struct {
	AuthService   ports.AuthService
	Tokens        ports.TokenService
	Confirmations ports.OtpConfirmations
	Mongo         *mongo.Database
	Redis         *redis.Client
	Log           zerolog.Logger
}

// gateBypass lists the public prefixes the token gate forwards
// unconditionally: the auth endpoints plus probes, metrics and docs.
// The OTP endpoints are deliberately absent — they require a resolved
// identity.
var gateBypass = []string{"/auth/", "/health", "/metrics", "/swagger"}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("authsvc"))
	e.Use(middleware.Auth(deps.Tokens, gateBypass...))

	authHandler := handler.NewAuthHandler(deps.AuthService)
	otpHandler := handler.NewOtpHandler(deps.AuthService)
	sessionHandler := handler.NewSessionHandler(deps.Confirmations)

	// --- Public auth routes ---
	e.POST("/auth/signup", authHandler.Signup)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/verify", authHandler.Verify)
	e.POST("/auth/resend", authHandler.Resend)

	// --- OTP step-up: a resolved identity, not yet OTP-confirmed ---
	otp := e.Group("/otp", middleware.RequireAuth())
	otp.POST("/send", otpHandler.Send)
	otp.GET("/verify", otpHandler.Show)
	otp.POST("/verify", otpHandler.Verify)

	// --- Protected surface: token + OTP step-up ---
	protected := e.Group("", middleware.RequireAuth(), middleware.RequireOtp(deps.Confirmations))
	protected.GET("/me", sessionHandler.Me)
	protected.POST("/logout", sessionHandler.Logout)

	// --- Admin surface ---
	admin := e.Group("/admin",
		middleware.RequireAuth(),
		middleware.RequireOtp(deps.Confirmations),
		middleware.RBAC(domain.RoleAdmin),
	)
	admin.POST("/signup", authHandler.SignupAdmin)

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
