package handlers

import (
	"net/http"
	"strconv"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/http/middleware"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PendingWithdrawals returns the admin decision queue, oldest notice first.
func (h *Handler) PendingWithdrawals(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	withdrawals, err := h.WithdrawalService.ListPending(c.Request.Context(), profileID)
	if err != nil {
		respondError(c, err)
		return
	}
	if withdrawals == nil {
		withdrawals = []domain.InvestorWithdrawal{}
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

type DecideRequest struct {
	RequestID int64  `json:"request_id"`
	Action    string `json:"action"`
	Notes     string `json:"notes"`
}

// DecideWithdrawal applies a terminal approve/reject decision.
func (h *Handler) DecideWithdrawal(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RequestID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	withdrawal, err := h.WithdrawalService.Decide(ctx, profileID, req.RequestID, domain.WithdrawalAction(req.Action), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.WithdrawalsDecided.WithLabelValues(req.Action).Inc()
	h.AuditService.LogWithdrawalDecision(ctx, profileID, withdrawal.ID, domain.WithdrawalAction(req.Action))
	h.Hub.Broadcast(ws.Event{Type: ws.EventWithdrawalDecided, Payload: ws.WithdrawalEvent{
		WithdrawalID: withdrawal.ID,
		Status:       string(withdrawal.Status),
	}})

	c.JSON(http.StatusOK, gin.H{"withdrawal": withdrawal})
}

type SettleRequest struct {
	Profit decimal.Decimal `json:"profit"`
	Notes  string          `json:"notes"`
}

// Settle closes the active cycle with the realized profit (negative for a
// loss) and opens the next one.
func (h *Handler) Settle(c *gin.Context) {
	profileID, ok := getProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()

	result, err := h.SettlementService.Settle(ctx, profileID, req.Profit, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.CyclesSettled.Inc()
	h.AuditService.LogSettlement(ctx, profileID, result.CycleID, result.Totals)
	h.Hub.Broadcast(ws.Event{Type: ws.EventCycleSettled, Payload: ws.SettlementEvent{
		CycleID:     result.CycleID,
		NextCycleID: result.NextCycle.ID,
	}})

	c.JSON(http.StatusOK, gin.H{
		"cycle_id":       result.CycleID,
		"totals":         result.Totals,
		"payout_summary": result.PayoutSummary,
		"next_cycle":     result.NextCycle,
	})
}

// CycleDetail returns one cycle with its full withdrawal ledger. Admin only.
func (h *Handler) CycleDetail(c *gin.Context) {
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

	cycleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cycle id"})
		return
	}

	cycle, err := h.CycleRepo.GetByID(ctx, cycleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if cycle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle not found"})
		return
	}

	withdrawals, err := h.WithdrawalRepo.ListByCycle(ctx, cycleID, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if withdrawals == nil {
		withdrawals = []domain.InvestorWithdrawal{}
	}

	c.JSON(http.StatusOK, gin.H{"cycle": cycle, "withdrawals": withdrawals})
}

// AuditTrail returns recent audit entries, optionally filtered by category.
// Admin only.
func (h *Handler) AuditTrail(c *gin.Context) {
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

	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var logs []*domain.AuditLog
	if category := c.Query("category"); category != "" {
		logs, err = h.AuditRepo.GetByCategory(ctx, category, limit)
	} else {
		logs, err = h.AuditRepo.GetRecent(ctx, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs})
}

// CycleHistory returns settled cycles, most recent first.
func (h *Handler) CycleHistory(c *gin.Context) {
	if _, ok := getProfileID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cycles, err := h.SettlementService.History(c.Request.Context(), 24)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if cycles == nil {
		cycles = []domain.FundCycle{}
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}
