package domain

import "github.com/shopspring/decimal"

// InvestorShare is an investor's proportional ownership of a cycle's pool,
// keyed by (cycle_id, investor_id). Rows are fully recomputed, never patched
// incrementally: percentages are relative, so any contribution change moves
// every investor's share.
type InvestorShare struct {
	CycleID         int64           `db:"cycle_id" json:"cycle_id"`
	InvestorID      int64           `db:"investor_id" json:"investor_id"`
	SharePercentage decimal.Decimal `db:"share_percentage" json:"share_percentage"`
	Contribution    decimal.Decimal `db:"contribution_usdt" json:"contribution_usdt"`
}
