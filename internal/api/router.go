package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/api/chat"
	"github.com/holyai/holyai/internal/api/middleware"
	"github.com/holyai/holyai/internal/api/proxy"
	"github.com/holyai/holyai/internal/api/response"
	"github.com/holyai/holyai/internal/api/speech"
	"github.com/holyai/holyai/internal/config"
	"github.com/holyai/holyai/internal/metrics"
)

// StoreChecker reports on the optional conversation store
type StoreChecker interface {
	StoreEnabled() bool
	PingStore(ctx context.Context) error
}

// Handlers groups the route handlers
type Handlers struct {
	Proxy  *proxy.Handler
	Chat   *chat.Handler
	Speech *speech.Handler
}

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Store    StoreChecker
	Status   func() config.Status
}

// SetupRouter sets up the Gin router
func SetupRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger.Named("http")))
	r.Use(middleware.Metrics(cfg.Metrics))

	// CORS middleware
	r.Use(middleware.CORS())

	r.NoMethod(response.MethodNotAllowed)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if cfg.Store == nil || !cfg.Store.StoreEnabled() {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "store": nil})
			return
		}
		if err := cfg.Store.PingStore(c.Request.Context()); err != nil {
			logger.Warn("store health check failed", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "ok"})
	})

	if cfg.Status != nil {
		r.GET("/api/config/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, cfg.Status())
		})
	}

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	apiGroup := r.Group("/api")
	if h.Proxy != nil {
		h.Proxy.RegisterRoutes(apiGroup)
	}
	if h.Chat != nil {
		h.Chat.RegisterRoutes(apiGroup.Group("/chat"))
	}
	if h.Speech != nil {
		h.Speech.RegisterRoutes(apiGroup.Group("/speech"))
	}

	return r
}
