package repository

import (
	"context"
	"errors"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ShareRepository struct {
	db *pgxpool.Pool
}

func NewShareRepository(db *pgxpool.Pool) *ShareRepository {
	return &ShareRepository{db: db}
}

// ReplaceWithTx swaps a cycle's full share set inside an existing transaction.
// Shares are always recomputed from scratch, so a delete-then-insert keeps
// investors whose contribution dropped to zero from lingering.
func (r *ShareRepository) ReplaceWithTx(ctx context.Context, tx pgx.Tx, cycleID int64, shares []domain.InvestorShare) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM investor_shares WHERE cycle_id = $1`, cycleID); err != nil {
		return err
	}

	for _, s := range shares {
		if _, err := tx.Exec(ctx, `
			INSERT INTO investor_shares (cycle_id, investor_id, share_percentage, contribution_usdt)
			VALUES ($1, $2, $3, $4)
		`, cycleID, s.InvestorID, s.SharePercentage, s.Contribution); err != nil {
			return err
		}
	}
	return nil
}

// ListByCycle returns a cycle's shares, largest first.
func (r *ShareRepository) ListByCycle(ctx context.Context, cycleID int64) ([]domain.InvestorShare, error) {
	rows, err := r.db.Query(ctx, `
		SELECT cycle_id, investor_id, share_percentage, contribution_usdt
		FROM investor_shares
		WHERE cycle_id = $1
		ORDER BY share_percentage DESC, investor_id ASC
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShares(rows)
}

// ListByCycleWithTx reads a cycle's shares inside tx, so settlement sees the
// rows as of its own lock.
func (r *ShareRepository) ListByCycleWithTx(ctx context.Context, tx pgx.Tx, cycleID int64) ([]domain.InvestorShare, error) {
	rows, err := tx.Query(ctx, `
		SELECT cycle_id, investor_id, share_percentage, contribution_usdt
		FROM investor_shares
		WHERE cycle_id = $1
		ORDER BY share_percentage DESC, investor_id ASC
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanShares(rows)
}

// GetByInvestor returns one investor's share of a cycle; nil when absent.
func (r *ShareRepository) GetByInvestor(ctx context.Context, cycleID, investorID int64) (*domain.InvestorShare, error) {
	row := r.db.QueryRow(ctx, `
		SELECT cycle_id, investor_id, share_percentage, contribution_usdt
		FROM investor_shares
		WHERE cycle_id = $1 AND investor_id = $2
	`, cycleID, investorID)

	var s domain.InvestorShare
	if err := row.Scan(&s.CycleID, &s.InvestorID, &s.SharePercentage, &s.Contribution); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func scanShares(rows pgx.Rows) ([]domain.InvestorShare, error) {
	var shares []domain.InvestorShare
	for rows.Next() {
		var s domain.InvestorShare
		if err := rows.Scan(&s.CycleID, &s.InvestorID, &s.SharePercentage, &s.Contribution); err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}
