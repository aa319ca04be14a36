package router

import (
	"net/http"
	"time"

	"usuarios-service/internal/adapter/gin/handler"
	"usuarios-service/internal/adapter/gin/middleware"
	"usuarios-service/pkg/logger"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options tunes the global middleware chain.
type Options struct {
	ServiceName  string
	MaxBodyBytes int64
	RateLimiter  *middleware.RateLimiter
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(logger.RequestID())
	router.Use(ginzap.Ginzap(log, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(log, true))
	router.Use(cors.Default())
	router.Use(middleware.Metrics())
	router.Use(middleware.MaxBodyBytes(opts.MaxBodyBytes))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": opts.ServiceName,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := router.Group("/usuarios", middleware.RateLimit(opts.RateLimiter))
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.ListUsers)
		users.GET("/filtro-data", userHandler.FilterByBirthDate)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	return router
}
