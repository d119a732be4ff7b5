package router

import (
	"github.com/gin-gonic/gin"

	"propveris/internal/config"
	"propveris/internal/handler"
	"propveris/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
// reportH is nil when no database is configured; the export route is
// then not registered.
func Setup(
	cfg *config.Config,
	verificationH *handler.VerificationHandler,
	reportH *handler.ReportHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Protected routes - require a valid service token
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(&cfg.JWT))

	// Synchronous verification
	protected.POST("/verify", verificationH.Verify)

	// Asynchronous verification queue
	verifications := protected.Group("/verifications")
	verifications.POST("", verificationH.Submit)
	if reportH != nil {
		verifications.GET("/export", reportH.Export)
	}
	verifications.GET("", verificationH.List)
	verifications.GET("/:id", verificationH.GetByID)
	verifications.DELETE("/:id", verificationH.Delete)

	return r
}
