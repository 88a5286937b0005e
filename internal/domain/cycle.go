package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CycleStatus represents fund cycle state; settled is terminal per instance.
type CycleStatus string

const (
	CycleStatusActive  CycleStatus = "active"
	CycleStatusSettled CycleStatus = "settled"
)

// FundCycle is one monthly accounting period. Exactly one row has
// status=active at any time (enforced by a partial unique index).
type FundCycle struct {
	ID                  int64           `db:"id" json:"id"`
	CycleMonth          int             `db:"cycle_month" json:"cycle_month"`
	CycleYear           int             `db:"cycle_year" json:"cycle_year"`
	Status              CycleStatus     `db:"status" json:"status"`
	ProfitTotal         decimal.Decimal `db:"profit_total" json:"profit_total"`
	InvestorPayoutTotal decimal.Decimal `db:"investor_payout_total" json:"investor_payout_total"`
	ReinvestedTotal     decimal.Decimal `db:"reinvested_total" json:"reinvested_total"`
	PerformanceFeeTotal decimal.Decimal `db:"performance_fee_total" json:"performance_fee_total"`
	LossTotal           decimal.Decimal `db:"loss_total" json:"loss_total"`
	PayoutSummary       []PayoutLine    `db:"payout_summary" json:"payout_summary,omitempty"`
	Notes               string          `db:"notes" json:"notes,omitempty"`
	OpenedAt            time.Time       `db:"opened_at" json:"opened_at"`
	ClosedAt            *time.Time      `db:"closed_at" json:"closed_at,omitempty"`
}

// NextPeriod returns the month/year following this cycle's period.
func (c *FundCycle) NextPeriod() (month, year int) {
	month, year = c.CycleMonth+1, c.CycleYear
	if month > 12 {
		month, year = 1, year+1
	}
	return month, year
}

// PayoutLine is one per-investor row of a settled cycle's payout summary.
type PayoutLine struct {
	InvestorID      int64           `json:"investor_id"`
	DisplayName     string          `json:"display_name,omitempty"`
	SharePercentage decimal.Decimal `json:"share_percentage"`
	Contribution    decimal.Decimal `json:"contribution_usdt"`
	Payout          decimal.Decimal `json:"payout_usdt"`
	Reinvested      decimal.Decimal `json:"reinvested_usdt"`
	Loss            decimal.Decimal `json:"loss_usdt"`
	NextContribution decimal.Decimal `json:"next_contribution_usdt"`
}

// SettlementTotals aggregates a settled cycle's distribution.
type SettlementTotals struct {
	ProfitTotal         decimal.Decimal `json:"profit_total"`
	PayoutTotal         decimal.Decimal `json:"payout_total"`
	ReinvestTotal       decimal.Decimal `json:"reinvest_total"`
	PerformanceFeeTotal decimal.Decimal `json:"performance_fee_total"`
	LossTotal           decimal.Decimal `json:"loss_total"`
}
