package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestorStatus represents investor lifecycle status
type InvestorStatus string

const (
	InvestorStatusActive InvestorStatus = "active"
	InvestorStatusExited InvestorStatus = "exited"
)

// Investor is created lazily on a profile's first deposit
type Investor struct {
	ID        int64          `db:"id" json:"id"`
	ProfileID int64          `db:"profile_id" json:"profile_id"`
	Status    InvestorStatus `db:"status" json:"status"`
	JoinedAt  time.Time      `db:"joined_at" json:"joined_at"`
}

// DepositType distinguishes how capital entered the pool
type DepositType string

const (
	DepositTypeExternal     DepositType = "external"     // direct contribution
	DepositTypeRollover     DepositType = "rollover"     // synthesized at settlement from prior-cycle capital
	DepositTypeReinvestment DepositType = "reinvestment" // synthesized at settlement from retained profit
	DepositTypeTonEvent     DepositType = "ton_event"    // verified on-chain contribution
)

// InvestorDeposit is an append-only ledger row; immutable once written.
type InvestorDeposit struct {
	ID         int64           `db:"id" json:"id"`
	InvestorID int64           `db:"investor_id" json:"investor_id"`
	CycleID    int64           `db:"cycle_id" json:"cycle_id"`
	Amount     decimal.Decimal `db:"amount_usdt" json:"amount_usdt"`
	Type       DepositType     `db:"deposit_type" json:"deposit_type"`
	TxHash     string          `db:"tx_hash" json:"tx_hash,omitempty"`
	Notes      string          `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// InvestorContact carries what the notifier needs to reach an investor.
type InvestorContact struct {
	InvestorID  int64  `json:"investor_id"`
	TelegramID  int64  `json:"telegram_id"`
	DisplayName string `json:"display_name"`
}
