// Package api serves the notification engine over HTTP for the browser view
// layer.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/observability"
)

// Config holds the listener and CORS settings of the HTTP API.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// DefaultConfig listens on localhost only and accepts a local dev frontend.
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8080",
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server exposes the notification service to HTTP clients.
type Server struct {
	svc         core.NotificationService
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	cfg         Config
}

// NewServer creates a new Server. metricsCalc and alertEngine may be nil if
// observability is disabled.
func NewServer(svc core.NotificationService, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	return &Server{
		svc:         svc,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		cfg:         cfg,
	}
}

// HTTPServer returns an http.Server serving the API on the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
}

// RegisterRoutes builds the gin engine with every route mounted.
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders: []string{"Accept", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", s.healthHandler)

	api := r.Group("/api")
	{
		api.GET("/queue", s.queueHandler)
		api.GET("/queue/:contactID/preview", s.previewHandler)
		api.POST("/queue/:contactID/dispatch", s.dispatchHandler)
		api.POST("/queue/:contactID/skip", s.skipHandler)

		api.GET("/contacts", s.listContactsHandler)
		api.PUT("/contacts", s.replaceContactsHandler)
		api.GET("/tasks", s.listTasksHandler)
		api.PUT("/tasks", s.replaceTasksHandler)
		api.GET("/settings", s.getSettingsHandler)
		api.PUT("/settings", s.saveSettingsHandler)
		api.POST("/templates/validate", s.validateTemplateHandler)

		api.GET("/summary", s.summaryHandler)
		api.GET("/stats", s.statsHandler)
		api.GET("/alerts", s.alertsHandler)
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errorJSON(c *gin.Context, status int, format string, args ...any) {
	c.JSON(status, gin.H{"error": fmt.Sprintf(format, args...)})
}
