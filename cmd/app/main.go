package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/bot"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/config"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/db"
	httpServer "github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/http"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/http/middleware"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/notify"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/service"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	var notifier notify.Notifier = notify.Noop{}
	if cfg.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.BotToken)
		if err != nil {
			logger.Warn("telegram notifier unavailable, continuing without notifications", "error", err)
		} else {
			notifier = tg
		}
	}

	r := gin.Default()

	// CORS for production (mini-app frontend on a different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	h, _ := httpServer.RegisterRoutes(r, dbPool, cfg, notifier, version)

	var adminBot *bot.AdminBot
	if cfg.AdminBotEnabled && len(cfg.AdminTelegramIDs) > 0 {
		var err error
		adminBot, err = bot.NewAdminBot(cfg.BotToken, dbPool, h.WithdrawalService, h.SettlementService, cfg.AdminTelegramIDs)
		if err != nil {
			logger.Warn("admin bot unavailable", "error", err)
		} else {
			go adminBot.Start()
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	if adminBot != nil {
		adminBot.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
