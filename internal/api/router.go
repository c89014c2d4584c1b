package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/health"
	"github.com/jmerrifield20/ledgerd/internal/identity"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"go.uber.org/zap"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// Tokens verifies caller tokens. Nil enables the X-Ledger-Caller header.
	Tokens *identity.TokenIssuer

	// Health backs /readyz. Nil serves /readyz from the dispatcher state only.
	Health *health.Checker

	CORSOrigins  []string
	RateLimitRPS int // 0 disables rate limiting
	Options      Options
}

// NewRouter builds the complete HTTP surface: middleware, health, metrics
// and the /api/v1 ledger routes. ctx bounds background goroutines.
func NewRouter(ctx context.Context, cfg RouterConfig, d *machine.Dispatcher, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
			AllowCredentials: !containsWildcard(cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(SecurityHeaders())
	router.Use(RequestLogger(logger))
	router.Use(PrometheusMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		select {
		case <-d.Done():
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped"})
		default:
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		}
	})
	router.GET("/readyz", func(c *gin.Context) {
		ready := true
		select {
		case <-d.Done():
			ready = false
		default:
		}
		var probes []health.Status
		if cfg.Health != nil {
			ready = ready && cfg.Health.Ready()
			probes = cfg.Health.Statuses()
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ready": ready, "probes": probes})
	})
	router.GET("/metrics", MetricsHandler())

	v1 := router.Group("/api/v1")
	v1.Use(identity.ResolveCaller(cfg.Tokens))
	if cfg.RateLimitRPS > 0 {
		v1.Use(RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	NewHandler(d, cfg.Options, logger).Register(v1)

	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
