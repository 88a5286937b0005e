package http

import (
	"os"
	"strconv"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/config"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/http/handlers"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/http/middleware"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/notify"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires every endpoint onto the engine and returns the pool
// event hub so other components (the admin bot, services) can broadcast.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, notifier notify.Notifier, version string) (*handlers.Handler, *ws.Hub) {
	hub := ws.NewHub()
	h := handlers.NewHandler(db, cfg, notifier, hub)
	healthHandler := handlers.NewHealthHandler(db, version)

	// read limits from env, with safe defaults
	apiRateLimit := envInt("API_RATE_LIMIT", 30)
	apiRateWindow := envSeconds("API_RATE_WINDOW_SECONDS", time.Minute)
	authRateLimit := envInt("AUTH_RATE_LIMIT", 5)
	authRateWindow := envSeconds("AUTH_RATE_WINDOW_SECONDS", time.Minute)
	poolRateLimit := envInt("POOL_RATE_LIMIT", 20)
	poolRateWindow := envSeconds("POOL_RATE_WINDOW_SECONDS", time.Minute)

	// Health checks and metrics (no rate limiting)
	r.GET("/health", healthHandler.Liveness)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))

	v1.POST("/auth", middleware.RedisRateLimit(authRateLimit, authRateWindow), h.Auth)

	// Mutating pool operations are limited per profile, not per IP.
	poolRL := middleware.ProfileRateLimit(poolRateLimit, poolRateWindow)

	pool := v1.Group("/pool")
	pool.Use(middleware.JWT())
	{
		pool.GET("", h.Pool)
		pool.GET("/shares", h.Shares)
		pool.POST("/deposit", poolRL, h.Deposit)
		pool.GET("/deposits", h.MyDeposits)
		pool.POST("/withdraw", poolRL, h.Withdraw)
		pool.GET("/withdrawals", h.MyWithdrawals)
		pool.GET("/activity", h.MyActivity)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.JWT())
	{
		admin.GET("/withdrawals", h.PendingWithdrawals)
		admin.POST("/withdrawals/decide", h.DecideWithdrawal)
		admin.POST("/settle", h.Settle)
		admin.GET("/cycles", h.CycleHistory)
		admin.GET("/cycles/:id", h.CycleDetail)
		admin.GET("/audit", h.AuditTrail)
	}

	// Upstream on-chain confirmations, authenticated by shared secret.
	v1.POST("/ton/events", h.IngestTonEvent)

	// WebSocket for live pool events
	r.GET("/ws", ws.HandleWS(hub))

	return h, hub
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
