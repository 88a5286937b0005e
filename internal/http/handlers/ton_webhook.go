package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TonEventRequest struct {
	DepositID   string          `json:"deposit_id"`
	InvestorKey string          `json:"investor_key"`
	TonTxHash   string          `json:"ton_tx_hash"`
	UsdtAmount  decimal.Decimal `json:"usdt_amount"`
	DctAmount   decimal.Decimal `json:"dct_amount"`
	FxRate      decimal.Decimal `json:"fx_rate"`
}

// IngestTonEvent stores a verified on-chain transaction from the upstream
// confirmation service. The event stays unconsumed until an investor claims
// it as a deposit.
func (h *Handler) IngestTonEvent(c *gin.Context) {
	secret := h.Config.TonWebhookSecret
	if secret == "" || subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Webhook-Secret")), []byte(secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req TonEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.TonTxHash == "" || req.InvestorKey == "" || !req.UsdtAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ton_tx_hash, investor_key and a positive usdt_amount are required"})
		return
	}

	ctx := c.Request.Context()

	exists, err := h.TonEventRepo.TxHashExists(ctx, req.TonTxHash)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "transaction already recorded"})
		return
	}

	valuation := req.UsdtAmount
	if req.DctAmount.IsPositive() && req.FxRate.IsPositive() {
		valuation = req.DctAmount.Mul(req.FxRate).Round(2)
	}

	event := &domain.TonEvent{
		DepositID:     req.DepositID,
		InvestorKey:   req.InvestorKey,
		TonTxHash:     req.TonTxHash,
		UsdtAmount:    req.UsdtAmount,
		DctAmount:     req.DctAmount,
		FxRate:        req.FxRate,
		ValuationUsdt: valuation,
	}
	if err := h.TonEventRepo.Create(ctx, event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	logger.Info("ton event ingested",
		"event_id", event.ID, "tx_hash", event.TonTxHash, "usdt", event.UsdtAmount)

	c.JSON(http.StatusOK, gin.H{"event_id": event.ID})
}
