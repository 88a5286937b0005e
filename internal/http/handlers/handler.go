package handlers

import (
	"errors"
	"net/http"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/config"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/notify"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/service"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	DB       *pgxpool.Pool
	Config   *config.Config
	Hub      *ws.Hub
	BotToken string

	ProfileRepo  *repository.ProfileRepository
	InvestorRepo *repository.InvestorRepository
	CycleRepo    *repository.CycleRepository
	ShareRepo    *repository.ShareRepository
	TonEventRepo *repository.TonEventRepository
	AuditRepo      *repository.AuditRepository
	WithdrawalRepo *repository.WithdrawalRepository

	DepositService    *service.DepositService
	WithdrawalService *service.WithdrawalService
	SettlementService *service.SettlementService
	AuditService      *service.AuditService
}

func NewHandler(db *pgxpool.Pool, cfg *config.Config, notifier notify.Notifier, hub *ws.Hub) *Handler {
	return &Handler{
		DB:       db,
		Config:   cfg,
		Hub:      hub,
		BotToken: cfg.BotToken,

		ProfileRepo:  repository.NewProfileRepository(db),
		InvestorRepo: repository.NewInvestorRepository(db),
		CycleRepo:    repository.NewCycleRepository(db),
		ShareRepo:    repository.NewShareRepository(db),
		TonEventRepo: repository.NewTonEventRepository(db),
		AuditRepo:      repository.NewAuditRepository(db),
		WithdrawalRepo: repository.NewWithdrawalRepository(db),

		DepositService: service.NewDepositService(db, notifier),
		WithdrawalService: service.NewWithdrawalService(
			db, cfg.WithdrawalFeeRate, cfg.NoticePeriod),
		SettlementService: service.NewSettlementService(
			db, notifier, cfg.PayoutShare, cfg.ReinvestShare, cfg.PerformanceShare),
		AuditService: service.NewAuditService(db),
	}
}

// getProfileID extracts the authenticated profile ID set by the JWT middleware.
func getProfileID(c *gin.Context) (int64, bool) {
	val, ok := c.Get("profile_id")
	if !ok {
		return 0, false
	}
	id, ok := val.(int64)
	return id, ok
}

// respondError maps the service error taxonomy to HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
