package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/marketsquare/auth-service/internal/api/handler"
	"github.com/marketsquare/auth-service/internal/api/middleware"
	"github.com/marketsquare/auth-service/internal/core/ports"
)

// RouterDeps carries the constructed collaborators the router wires
// into handlers. Everything is injected: no globals, no lazy singletons.
type RouterDeps struct {
	Auth        ports.AuthService
	Tokens      ports.TokenIssuer
	Revoked     ports.RevocationRegistry
	Mongo       *mongo.Database
	Redis       *redis.Client
	FrontendURL string
	Logger      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("auth"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.FrontendURL)
	requireAuth := middleware.Auth(deps.Tokens, deps.Revoked, deps.Logger)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/logout", authHandler.Logout, requireAuth)
	e.GET("/auth/me", authHandler.Me, requireAuth)

	e.POST("/auth/forgot-password", authHandler.ForgotPassword)
	e.POST("/auth/reset-password/:token", authHandler.ResetPassword)
	e.POST("/auth/send-verification", authHandler.SendVerification)
	e.POST("/auth/verify-email", authHandler.VerifyEmail)
	e.POST("/auth/resend-verification", authHandler.ResendVerification)

	e.POST("/auth/google", authHandler.GoogleLogin)
	e.GET("/auth/google/start", authHandler.GoogleStart)
	e.GET("/auth/google/callback", authHandler.GoogleCallback)

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	return e
}
