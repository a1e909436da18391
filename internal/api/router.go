package api

import (
	"context"
	"net/http"
	"time"

	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

type routerOptions struct {
	healthChecks map[string]HealthChecker
}

// Option customizes the router
type Option func(*routerOptions)

// WithHealthCheck adds a named dependency check to /health
func WithHealthCheck(name string, check HealthChecker) Option {
	return func(o *routerOptions) {
		o.healthChecks[name] = check
	}
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, opts ...Option) *gin.Engine {
	options := &routerOptions{healthChecks: make(map[string]HealthChecker)}
	for _, opt := range opts {
		opt(options)
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	collectionHandler := NewCollectionHandler(services, log)
	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)

	router.GET("/health", healthCheck(options.healthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/v1")
	{
		v1.GET("/stats", statsHandler(services))

		collections := v1.Group("/collections")
		{
			collections.GET("", collectionHandler.ListSchemas)
			collections.GET("/:kind", collectionHandler.GetSchema)
			collections.POST("/:kind/validate", collectionHandler.Validate)
		}

		imports := v1.Group("/imports")
		{
			imports.POST("", importHandler.CreateImport)
			imports.GET("/:job_id", importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", importHandler.GetImportErrors)
		}

		v1.GET("/exports", exportHandler.StreamExport)
	}

	return router
}

// healthCheck returns the health status; any failing dependency makes it 503
func healthCheck(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := check(ctx)
			cancel()
			if err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "content-collections",
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		if status != http.StatusOK {
			body["status"] = "unhealthy"
		}
		c.JSON(status, body)
	}
}

// statsHandler returns the number of stored entries per collection
func statsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := services.Export.GetCounts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count entries"})
			return
		}

		total := 0
		entries := gin.H{}
		for kind, n := range counts {
			entries[string(kind)] = n
			total += n
		}

		c.JSON(http.StatusOK, gin.H{
			"entries":   entries,
			"total":     total,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
