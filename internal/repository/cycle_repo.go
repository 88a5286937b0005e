package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cycleColumns = `
	id, cycle_month, cycle_year, status,
	profit_total, investor_payout_total, reinvested_total, performance_fee_total, loss_total,
	payout_summary, COALESCE(notes, ''), opened_at, closed_at
`

type CycleRepository struct {
	db *pgxpool.Pool
}

func NewCycleRepository(db *pgxpool.Pool) *CycleRepository {
	return &CycleRepository{db: db}
}

// GetActive returns the single active cycle, or nil when none exists.
func (r *CycleRepository) GetActive(ctx context.Context) (*domain.FundCycle, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+cycleColumns+` FROM fund_cycles WHERE status = 'active'`)
	return scanCycle(row)
}

// GetActiveForUpdate locks the active cycle row for the duration of tx.
// Every mutating pool operation takes this lock first, which serializes the
// read-recompute-write sequence per cycle.
func (r *CycleRepository) GetActiveForUpdate(ctx context.Context, tx pgx.Tx) (*domain.FundCycle, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+cycleColumns+` FROM fund_cycles WHERE status = 'active' FOR UPDATE`)
	return scanCycle(row)
}

// GetByID retrieves a cycle by ID; returns nil when absent.
func (r *CycleRepository) GetByID(ctx context.Context, id int64) (*domain.FundCycle, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+cycleColumns+` FROM fund_cycles WHERE id = $1`, id)
	return scanCycle(row)
}

// ListSettled returns settled cycles, most recent first.
func (r *CycleRepository) ListSettled(ctx context.Context, limit int) ([]domain.FundCycle, error) {
	if limit <= 0 {
		limit = 24
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+cycleColumns+` FROM fund_cycles WHERE status = 'settled'
		 ORDER BY cycle_year DESC, cycle_month DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []domain.FundCycle
	for rows.Next() {
		c, err := scanCycleValues(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, *c)
	}
	return cycles, rows.Err()
}

// CreateWithTx opens a new cycle inside an existing transaction. The partial
// unique index on status=active makes a second concurrent open fail.
func (r *CycleRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, c *domain.FundCycle) error {
	if c.Status == "" {
		c.Status = domain.CycleStatusActive
	}
	return tx.QueryRow(ctx, `
		INSERT INTO fund_cycles (cycle_month, cycle_year, status)
		VALUES ($1, $2, $3)
		RETURNING id, opened_at
	`, c.CycleMonth, c.CycleYear, c.Status).Scan(&c.ID, &c.OpenedAt)
}

// CloseWithTx settles a cycle: writes the distribution totals, the payout
// summary and the closure timestamp, and flips status to settled.
func (r *CycleRepository) CloseWithTx(ctx context.Context, tx pgx.Tx, c *domain.FundCycle) error {
	summaryJSON, err := json.Marshal(c.PayoutSummary)
	if err != nil {
		return err
	}

	now := time.Now()
	c.ClosedAt = &now
	c.Status = domain.CycleStatusSettled

	_, err = tx.Exec(ctx, `
		UPDATE fund_cycles
		SET status = 'settled',
		    profit_total = $2,
		    investor_payout_total = $3,
		    reinvested_total = $4,
		    performance_fee_total = $5,
		    loss_total = $6,
		    payout_summary = $7,
		    notes = $8,
		    closed_at = $9
		WHERE id = $1 AND status = 'active'
	`, c.ID, c.ProfitTotal, c.InvestorPayoutTotal, c.ReinvestedTotal,
		c.PerformanceFeeTotal, c.LossTotal, summaryJSON, c.Notes, now)
	return err
}

func scanCycle(row pgx.Row) (*domain.FundCycle, error) {
	c, err := scanCycleValues(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func scanCycleValues(row pgx.Row) (*domain.FundCycle, error) {
	var c domain.FundCycle
	var summaryJSON []byte
	var closedAt *time.Time

	if err := row.Scan(
		&c.ID, &c.CycleMonth, &c.CycleYear, &c.Status,
		&c.ProfitTotal, &c.InvestorPayoutTotal, &c.ReinvestedTotal, &c.PerformanceFeeTotal, &c.LossTotal,
		&summaryJSON, &c.Notes, &c.OpenedAt, &closedAt,
	); err != nil {
		return nil, err
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &c.PayoutSummary); err != nil {
			return nil, err
		}
	}
	c.ClosedAt = closedAt
	return &c, nil
}
