package ws

import "github.com/shopspring/decimal"

// Event types pushed to mini-app clients.
const (
	EventDepositRecorded   = "deposit_recorded"
	EventSharesUpdated     = "shares_updated"
	EventWithdrawalDecided = "withdrawal_decided"
	EventCycleSettled      = "cycle_settled"
)

// Event is one pool change broadcast to all connected clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DepositEvent announces a recorded contribution.
type DepositEvent struct {
	CycleID                int64           `json:"cycle_id"`
	TotalCycleContribution decimal.Decimal `json:"total_cycle_contribution"`
}

// WithdrawalEvent announces a terminal admin decision.
type WithdrawalEvent struct {
	WithdrawalID int64  `json:"withdrawal_id"`
	Status       string `json:"status"`
}

// SettlementEvent announces a closed cycle and its successor.
type SettlementEvent struct {
	CycleID     int64 `json:"cycle_id"`
	NextCycleID int64 `json:"next_cycle_id"`
}
