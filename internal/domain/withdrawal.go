package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents withdrawal lifecycle state.
// pending -> approved | rejected, both terminal.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusApproved || s == WithdrawalStatusRejected
}

// WithdrawalAction is an admin decision on a pending withdrawal.
type WithdrawalAction string

const (
	WithdrawalActionApprove WithdrawalAction = "approve"
	WithdrawalActionReject  WithdrawalAction = "reject"
)

// InvestorWithdrawal tracks a request through the notice period to the
// admin decision. Amount is gross; NetAmount is populated on approval.
type InvestorWithdrawal struct {
	ID               int64            `db:"id" json:"id"`
	InvestorID       int64            `db:"investor_id" json:"investor_id"`
	CycleID          int64            `db:"cycle_id" json:"cycle_id"`
	Amount           decimal.Decimal  `db:"amount_usdt" json:"amount_usdt"`
	NetAmount        decimal.Decimal  `db:"net_amount_usdt" json:"net_amount_usdt"`
	ReinvestedAmount decimal.Decimal  `db:"reinvested_usdt" json:"reinvested_usdt"`
	Status           WithdrawalStatus `db:"status" json:"status"`
	RequestedAt      time.Time        `db:"requested_at" json:"requested_at"`
	NoticeExpiresAt  time.Time        `db:"notice_expires_at" json:"notice_expires_at"`
	FulfilledAt      *time.Time       `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
	AdminNotes       string           `db:"admin_notes" json:"admin_notes,omitempty"`
}
