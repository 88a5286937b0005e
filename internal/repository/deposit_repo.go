package repository

import (
	"context"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DepositRepository struct {
	db *pgxpool.Pool
}

func NewDepositRepository(db *pgxpool.Pool) *DepositRepository {
	return &DepositRepository{db: db}
}

// CreateWithTx appends a deposit row inside an existing transaction.
// Deposit rows are immutable once written.
func (r *DepositRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, d *domain.InvestorDeposit) error {
	return tx.QueryRow(ctx, `
		INSERT INTO investor_deposits (investor_id, cycle_id, amount_usdt, deposit_type, tx_hash, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING id, created_at
	`, d.InvestorID, d.CycleID, d.Amount, d.Type, d.TxHash, d.Notes).Scan(&d.ID, &d.CreatedAt)
}

// ListByCycle returns all deposits of a cycle, oldest first.
func (r *DepositRepository) ListByCycle(ctx context.Context, cycleID int64) ([]domain.InvestorDeposit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, investor_id, cycle_id, amount_usdt, deposit_type, COALESCE(tx_hash, ''), COALESCE(notes, ''), created_at
		FROM investor_deposits
		WHERE cycle_id = $1
		ORDER BY created_at ASC, id ASC
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDeposits(rows)
}

// ListByInvestor returns an investor's deposits, newest first.
func (r *DepositRepository) ListByInvestor(ctx context.Context, investorID int64, limit int) ([]domain.InvestorDeposit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, investor_id, cycle_id, amount_usdt, deposit_type, COALESCE(tx_hash, ''), COALESCE(notes, ''), created_at
		FROM investor_deposits
		WHERE investor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, investorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDeposits(rows)
}

// SumByInvestorWithTx returns each investor's deposit total within a cycle,
// read inside tx so it reflects rows written earlier in the same transaction.
func (r *DepositRepository) SumByInvestorWithTx(ctx context.Context, tx pgx.Tx, cycleID int64) (map[int64]decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `
		SELECT investor_id, COALESCE(SUM(amount_usdt), 0)
		FROM investor_deposits
		WHERE cycle_id = $1
		GROUP BY investor_id
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var investorID int64
		var total decimal.Decimal
		if err := rows.Scan(&investorID, &total); err != nil {
			return nil, err
		}
		totals[investorID] = total
	}
	return totals, rows.Err()
}

func scanDeposits(rows pgx.Rows) ([]domain.InvestorDeposit, error) {
	var deposits []domain.InvestorDeposit
	for rows.Next() {
		var d domain.InvestorDeposit
		if err := rows.Scan(&d.ID, &d.InvestorID, &d.CycleID, &d.Amount, &d.Type, &d.TxHash, &d.Notes, &d.CreatedAt); err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}
