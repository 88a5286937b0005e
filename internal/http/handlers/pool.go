package handlers

import (
	"net/http"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/http/middleware"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/service"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Pool returns the active cycle and the caller's position in it.
func (h *Handler) Pool(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()

	cycle, err := h.CycleRepo.GetActive(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if cycle == nil {
		c.JSON(http.StatusOK, gin.H{"cycle": nil})
		return
	}

	var share *domain.InvestorShare
	investor, err := h.InvestorRepo.GetByProfileID(ctx, profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if investor != nil {
		share, err = h.ShareRepo.GetByInvestor(ctx, cycle.ID, investor.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"cycle": cycle,
		"share": share,
	})
}

// Shares returns every investor's share of the active cycle. Admin only.
func (h *Handler) Shares(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()

	profile, err := h.ProfileRepo.GetByID(ctx, profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if profile == nil || !profile.IsAdmin() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin role required"})
		return
	}

	cycle, err := h.CycleRepo.GetActive(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if cycle == nil {
		c.JSON(http.StatusOK, gin.H{"cycle": nil, "shares": []domain.InvestorShare{}})
		return
	}

	shares, err := h.ShareRepo.ListByCycle(ctx, cycle.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cycle": cycle, "shares": shares})
}

type DepositRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	TonEventID int64           `json:"ton_event_id"`
}

// Deposit records a contribution into the active cycle, either a direct
// amount or a verified on-chain event.
func (h *Handler) Deposit(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	var result *service.DepositResult
	var err error
	depositType := domain.DepositTypeExternal
	if req.TonEventID != 0 {
		depositType = domain.DepositTypeTonEvent
		result, err = h.DepositService.RecordTonEvent(ctx, profileID, req.TonEventID)
	} else {
		result, err = h.DepositService.RecordDirect(ctx, profileID, req.Amount)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.DepositsRecorded.WithLabelValues(string(depositType)).Inc()
	h.AuditService.LogDeposit(ctx, profileID, result.Amount, depositType, result.CycleID)
	h.Hub.Broadcast(ws.Event{Type: ws.EventDepositRecorded, Payload: ws.DepositEvent{
		CycleID:                result.CycleID,
		TotalCycleContribution: result.TotalCycleContribution,
	}})
	h.Hub.Broadcast(ws.Event{Type: ws.EventSharesUpdated, Payload: ws.DepositEvent{
		CycleID:                result.CycleID,
		TotalCycleContribution: result.TotalCycleContribution,
	}})

	c.JSON(http.StatusOK, gin.H{
		"ok":                       true,
		"share_percentage":         result.SharePercentage,
		"total_cycle_contribution": result.TotalCycleContribution,
	})
}

// MyDeposits returns the caller's deposit history.
func (h *Handler) MyDeposits(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	deposits, err := h.DepositService.ListByProfile(c.Request.Context(), profileID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if deposits == nil {
		deposits = []domain.InvestorDeposit{}
	}
	c.JSON(http.StatusOK, gin.H{"deposits": deposits})
}

type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Withdraw opens a pending withdrawal subject to the notice period.
func (h *Handler) Withdraw(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	withdrawal, err := h.WithdrawalService.Request(ctx, profileID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	h.AuditService.LogWithdrawalRequest(ctx, profileID, withdrawal.ID, withdrawal.Amount)

	c.JSON(http.StatusOK, gin.H{
		"status":            withdrawal.Status,
		"withdrawal_id":     withdrawal.ID,
		"notice_expires_at": withdrawal.NoticeExpiresAt,
	})
}

// MyActivity returns the caller's recent audit trail: logins, deposits,
// withdrawal requests.
func (h *Handler) MyActivity(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entries, err := h.AuditRepo.GetByProfileID(c.Request.Context(), profileID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if entries == nil {
		entries = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// MyWithdrawals returns the caller's withdrawal history.
func (h *Handler) MyWithdrawals(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	withdrawals, err := h.WithdrawalService.ListByProfile(c.Request.Context(), profileID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if withdrawals == nil {
		withdrawals = []domain.InvestorWithdrawal{}
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}
