package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	ProfileID int64                  `db:"profile_id" json:"profile_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth       = "auth"
	AuditCategoryDeposit    = "deposit"
	AuditCategoryWithdrawal = "withdrawal"
	AuditCategorySettlement = "settlement"
	AuditCategoryAdmin      = "admin"
)

// Audit actions
const (
	AuditActionLogin = "login"

	AuditActionDepositDirect   = "deposit_direct"
	AuditActionDepositTonEvent = "deposit_ton_event"

	AuditActionWithdrawRequest = "withdraw_request"
	AuditActionWithdrawApprove = "withdraw_approve"
	AuditActionWithdrawReject  = "withdraw_reject"

	AuditActionCycleSettle = "cycle_settle"
	AuditActionCycleOpen   = "cycle_open"
)
