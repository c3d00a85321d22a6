package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"secureshare/controllers"
	"secureshare/middleware"
)

// Dependencies are the handlers and middleware the route table needs.
type Dependencies struct {
	Files          *controllers.FileController
	Health         *controllers.HealthController
	Tokens         middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Logger         *logrus.Logger
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(deps.Logger))
	r.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	r.Use(middleware.SecurityHeadersMiddleware())

	r.GET("/health", deps.Health.Health)
	r.GET("/version", deps.Health.Version)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		FileRoutes(v1, deps.Files, deps.Tokens, deps.RateLimiter)
	}
}
