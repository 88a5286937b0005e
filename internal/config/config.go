package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	BotToken    string
	JWTSecret   string

	AdminTelegramIDs []int64
	AdminBotEnabled  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TonWebhookSecret string

	// Pool policy
	WithdrawalFeeRate decimal.Decimal // applied to gross on approval
	NoticePeriod      time.Duration   // request -> earliest approval
	PayoutShare       decimal.Decimal // profit slice paid out to investors
	ReinvestShare     decimal.Decimal // profit slice retained in the pool
	PerformanceShare  decimal.Decimal // platform's slice of profit
}

// Load reads configuration from the environment, .env included.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	var adminIDs []int64
	if s := os.Getenv("ADMIN_TELEGRAM_IDS"); s != "" {
		for _, idStr := range strings.Split(s, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				adminIDs = append(adminIDs, id)
			}
		}
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	// Fee observed on approvals: 50 gross -> 42 net. Overridable until the
	// schedule is finalized.
	feeRate := envDecimal("WITHDRAWAL_FEE_RATE", "0.16")

	noticeDays := 7
	if v := os.Getenv("WITHDRAWAL_NOTICE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			noticeDays = n
		}
	}

	payout := envDecimal("PROFIT_PAYOUT_SHARE", "0.64")
	reinvest := envDecimal("PROFIT_REINVEST_SHARE", "0.16")
	fee := envDecimal("PROFIT_PERFORMANCE_SHARE", "0.20")
	if !payout.Add(reinvest).Add(fee).Equal(decimal.NewFromInt(1)) {
		logger.Fatal("profit shares must sum to 1",
			"payout", payout, "reinvest", reinvest, "performance", fee)
	}

	return &Config{
		AppPort:           port,
		DatabaseURL:       dbURL,
		BotToken:          botToken,
		JWTSecret:         jwtSecret,
		AdminTelegramIDs:  adminIDs,
		AdminBotEnabled:   os.Getenv("ADMIN_BOT_ENABLED") == "true",
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		TonWebhookSecret:  os.Getenv("TON_WEBHOOK_SECRET"),
		WithdrawalFeeRate: feeRate,
		NoticePeriod:      time.Duration(noticeDays) * 24 * time.Hour,
		PayoutShare:       payout,
		ReinvestShare:     reinvest,
		PerformanceShare:  fee,
	}
}

func envDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
		logger.Warn("invalid decimal in env, using default", "key", key, "value", v)
	}
	d, _ := decimal.NewFromString(fallback)
	return d
}
