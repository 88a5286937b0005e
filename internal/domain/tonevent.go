package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TonEvent is a verified on-chain transaction supplied by the upstream
// confirmation webhook. ConsumedAt transitions null->timestamp exactly once;
// the claim is a compare-and-swap so two deposit requests referencing the
// same event cannot both succeed.
type TonEvent struct {
	ID            int64           `db:"id" json:"id"`
	DepositID     string          `db:"deposit_id" json:"deposit_id"`
	InvestorKey   string          `db:"investor_key" json:"investor_key"`
	TonTxHash     string          `db:"ton_tx_hash" json:"ton_tx_hash"`
	UsdtAmount    decimal.Decimal `db:"usdt_amount" json:"usdt_amount"`
	DctAmount     decimal.Decimal `db:"dct_amount" json:"dct_amount"`
	FxRate        decimal.Decimal `db:"fx_rate" json:"fx_rate"`
	ValuationUsdt decimal.Decimal `db:"valuation_usdt" json:"valuation_usdt"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	ConsumedAt    *time.Time      `db:"consumed_at" json:"consumed_at,omitempty"`
}

// Consumed reports whether the event has already backed a deposit.
func (e *TonEvent) Consumed() bool {
	return e.ConsumedAt != nil
}
