package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"diagramboard/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Stats reports the live state of the drawing room
type Stats interface {
	ConnectionCount() int
	HistoryLen() int
}

// RouterDeps: everything the HTTP surface is built from
type RouterDeps struct {
	WebSocket      http.Handler
	Cleaner        Cleaner
	Stats          Stats
	CleanupLimiter *middleware.IPRateLimit
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter: /ws for drawing, /api/cleanup for AI cleanup, /healthz for probes
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	r.GET("/ws", gin.WrapH(deps.WebSocket))

	api := r.Group("/api")
	if deps.CleanupLimiter != nil {
		api.Use(deps.CleanupLimiter.Middleware())
	}
	api.POST("/cleanup", NewCleanupHandler(deps.Cleaner, logger).Handle)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":     "ok",
			"connections": deps.Stats.ConnectionCount(),
			"history":     deps.Stats.HistoryLen(),
		})
	})

	return r
}

// corsConfig: any origin unless a list is configured
func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cfg
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"remote", middleware.ClientIP(c.Request),
			"duration", time.Since(start),
		)
	}
}
