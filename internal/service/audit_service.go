package service

import (
	"context"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/logger"
	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AuditService handles audit logging
type AuditService struct {
	repo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, profileID int64, action, category string, details map[string]interface{}) {
	entry := &domain.AuditLog{
		ProfileID: profileID,
		Action:    action,
		Category:  category,
		Details:   details,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "profile_id", profileID)
	}
}

// LogDeposit logs a recorded deposit
func (s *AuditService) LogDeposit(ctx context.Context, profileID int64, amount decimal.Decimal, depositType domain.DepositType, cycleID int64) {
	action := domain.AuditActionDepositDirect
	if depositType == domain.DepositTypeTonEvent {
		action = domain.AuditActionDepositTonEvent
	}
	s.Log(ctx, profileID, action, domain.AuditCategoryDeposit, map[string]interface{}{
		"amount_usdt":  amount.StringFixed(2),
		"deposit_type": string(depositType),
		"cycle_id":     cycleID,
	})
}

// LogWithdrawalRequest logs a new withdrawal request
func (s *AuditService) LogWithdrawalRequest(ctx context.Context, profileID int64, withdrawalID int64, amount decimal.Decimal) {
	s.Log(ctx, profileID, domain.AuditActionWithdrawRequest, domain.AuditCategoryWithdrawal, map[string]interface{}{
		"withdrawal_id": withdrawalID,
		"amount_usdt":   amount.StringFixed(2),
	})
}

// LogWithdrawalDecision logs an admin decision on a withdrawal
func (s *AuditService) LogWithdrawalDecision(ctx context.Context, adminProfileID int64, withdrawalID int64, action domain.WithdrawalAction) {
	auditAction := domain.AuditActionWithdrawReject
	if action == domain.WithdrawalActionApprove {
		auditAction = domain.AuditActionWithdrawApprove
	}
	s.Log(ctx, adminProfileID, auditAction, domain.AuditCategoryWithdrawal, map[string]interface{}{
		"withdrawal_id": withdrawalID,
	})
}

// LogSettlement logs a cycle settlement
func (s *AuditService) LogSettlement(ctx context.Context, adminProfileID int64, cycleID int64, totals domain.SettlementTotals) {
	s.Log(ctx, adminProfileID, domain.AuditActionCycleSettle, domain.AuditCategorySettlement, map[string]interface{}{
		"cycle_id":              cycleID,
		"profit_total":          totals.ProfitTotal.StringFixed(2),
		"payout_total":          totals.PayoutTotal.StringFixed(2),
		"reinvest_total":        totals.ReinvestTotal.StringFixed(2),
		"performance_fee_total": totals.PerformanceFeeTotal.StringFixed(2),
		"loss_total":            totals.LossTotal.StringFixed(2),
	})
}
