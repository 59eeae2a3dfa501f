package handler

import (
	"pix-transfer-gateway/internal/adapter/http/middleware"
	"pix-transfer-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AccountSvc     ports.AccountService
	TransferSvc    ports.TransferService
	TokenSvc       ports.TokenService
	Sessions       ports.SessionRevoker
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Sessions, deps.Logger)

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AccountSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", jwtAuth, authHandler.Logout)
	}

	// --- Session-authenticated account routes ---
	accountHandler := NewAccountHandler(deps.AccountSvc)
	accounts := v1.Group("/accounts/me", jwtAuth)
	{
		accounts.GET("", accountHandler.GetProfile)
		accounts.PATCH("", accountHandler.UpdateProfile)
		accounts.PUT("/password", accountHandler.ChangePassword)
		accounts.PUT("/pin", accountHandler.ChangePin)
	}

	// --- Session-authenticated transfer flow ---
	transferHandler := NewTransferHandler(deps.TransferSvc)
	transfers := v1.Group("/transfers", jwtAuth)
	{
		transfers.POST("", transferHandler.SubmitDetails)
		transfers.POST("/pin", transferHandler.SubmitPin)
		transfers.POST("/confirm", transferHandler.Confirm)
		transfers.POST("/cancel", transferHandler.Cancel)
	}

	return r
}
