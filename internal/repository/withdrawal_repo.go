package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const withdrawalColumns = `
	id, investor_id, cycle_id, amount_usdt, net_amount_usdt, reinvested_usdt,
	status, requested_at, notice_expires_at, fulfilled_at, COALESCE(admin_notes, '')
`

type WithdrawalRepository struct {
	db *pgxpool.Pool
}

func NewWithdrawalRepository(db *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// CreateWithTx inserts a pending withdrawal inside an existing transaction.
func (r *WithdrawalRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, w *domain.InvestorWithdrawal) error {
	return tx.QueryRow(ctx, `
		INSERT INTO investor_withdrawals (investor_id, cycle_id, amount_usdt, status, notice_expires_at)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, requested_at
	`, w.InvestorID, w.CycleID, w.Amount, w.NoticeExpiresAt).Scan(&w.ID, &w.RequestedAt)
}

// GetByIDForUpdate locks a withdrawal row for the duration of tx so two
// admin decisions on the same request cannot interleave.
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.InvestorWithdrawal, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM investor_withdrawals WHERE id = $1 FOR UPDATE`, id)
	return scanWithdrawal(row)
}

// DecideWithTx records the terminal admin decision on a pending withdrawal.
func (r *WithdrawalRepository) DecideWithTx(ctx context.Context, tx pgx.Tx, w *domain.InvestorWithdrawal) error {
	_, err := tx.Exec(ctx, `
		UPDATE investor_withdrawals
		SET status = $2, net_amount_usdt = $3, fulfilled_at = $4, admin_notes = NULLIF($5, '')
		WHERE id = $1 AND status = 'pending'
	`, w.ID, w.Status, w.NetAmount, w.FulfilledAt, w.AdminNotes)
	return err
}

// ListByCycle returns a cycle's withdrawals filtered by status, oldest first.
func (r *WithdrawalRepository) ListByCycle(ctx context.Context, cycleID int64, statuses []domain.WithdrawalStatus) ([]domain.InvestorWithdrawal, error) {
	if len(statuses) == 0 {
		statuses = []domain.WithdrawalStatus{
			domain.WithdrawalStatusPending,
			domain.WithdrawalStatusApproved,
			domain.WithdrawalStatusRejected,
		}
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM investor_withdrawals
		 WHERE cycle_id = $1 AND status = ANY($2)
		 ORDER BY requested_at ASC, id ASC`, cycleID, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWithdrawals(rows)
}

// ListByInvestor returns an investor's withdrawals, newest first.
func (r *WithdrawalRepository) ListByInvestor(ctx context.Context, investorID int64, limit int) ([]domain.InvestorWithdrawal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM investor_withdrawals
		 WHERE investor_id = $1
		 ORDER BY requested_at DESC
		 LIMIT $2`, investorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWithdrawals(rows)
}

// ListPending returns all pending withdrawals across cycles, oldest first.
func (r *WithdrawalRepository) ListPending(ctx context.Context) ([]domain.InvestorWithdrawal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM investor_withdrawals
		 WHERE status = 'pending'
		 ORDER BY requested_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWithdrawals(rows)
}

// SumApprovedByInvestorWithTx returns each investor's approved gross
// withdrawal total within a cycle, read inside tx.
func (r *WithdrawalRepository) SumApprovedByInvestorWithTx(ctx context.Context, tx pgx.Tx, cycleID int64) (map[int64]decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `
		SELECT investor_id, COALESCE(SUM(amount_usdt), 0)
		FROM investor_withdrawals
		WHERE cycle_id = $1 AND status = 'approved'
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

func scanWithdrawal(row pgx.Row) (*domain.InvestorWithdrawal, error) {
	w, err := scanWithdrawalValues(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func scanWithdrawalValues(row pgx.Row) (*domain.InvestorWithdrawal, error) {
	var w domain.InvestorWithdrawal
	var fulfilledAt *time.Time

	if err := row.Scan(
		&w.ID, &w.InvestorID, &w.CycleID, &w.Amount, &w.NetAmount, &w.ReinvestedAmount,
		&w.Status, &w.RequestedAt, &w.NoticeExpiresAt, &fulfilledAt, &w.AdminNotes,
	); err != nil {
		return nil, err
	}

	w.FulfilledAt = fulfilledAt
	return &w, nil
}

func scanWithdrawals(rows pgx.Rows) ([]domain.InvestorWithdrawal, error) {
	var withdrawals []domain.InvestorWithdrawal
	for rows.Next() {
		w, err := scanWithdrawalValues(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}
