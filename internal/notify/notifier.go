package notify

import (
	"context"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/shopspring/decimal"
)

// DepositNote is sent to the depositing investor after their contribution
// is recorded and shares are recomputed.
type DepositNote struct {
	TelegramID      int64
	DisplayName     string
	AmountUsdt      decimal.Decimal
	SharePercentage decimal.Decimal
	CycleMonth      int
	CycleYear       int
}

// SettlementNote is broadcast to every investor of a settled cycle.
type SettlementNote struct {
	CycleMonth int
	CycleYear  int
	Totals     domain.SettlementTotals
	Summary    []domain.PayoutLine
	Notes      string
	Contacts   []domain.InvestorContact
}

// Notifier delivers investor-facing messages. Delivery is best-effort:
// callers dispatch after their transaction commits and only log failures.
type Notifier interface {
	NotifyDeposit(ctx context.Context, note DepositNote) error
	NotifyInvestors(ctx context.Context, note SettlementNote) error
}

// Noop is a Notifier that discards everything. Used in tests and when no
// bot token is configured.
type Noop struct{}

func (Noop) NotifyDeposit(ctx context.Context, note DepositNote) error    { return nil }
func (Noop) NotifyInvestors(ctx context.Context, note SettlementNote) error { return nil }
