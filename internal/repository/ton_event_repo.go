package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TonEventRepository struct {
	db *pgxpool.Pool
}

func NewTonEventRepository(db *pgxpool.Pool) *TonEventRepository {
	return &TonEventRepository{db: db}
}

// Create inserts a verified on-chain event delivered by the upstream webhook.
// The unique index on ton_tx_hash rejects replays of the same transaction.
func (r *TonEventRepository) Create(ctx context.Context, e *domain.TonEvent) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO ton_events (deposit_id, investor_key, ton_tx_hash, usdt_amount, dct_amount, fx_rate, valuation_usdt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, e.DepositID, e.InvestorKey, e.TonTxHash, e.UsdtAmount, e.DctAmount, e.FxRate, e.ValuationUsdt).Scan(&e.ID, &e.CreatedAt)
}

// GetByID retrieves a TON event by ID; returns nil when absent.
func (r *TonEventRepository) GetByID(ctx context.Context, id int64) (*domain.TonEvent, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, deposit_id, investor_key, ton_tx_hash, usdt_amount, dct_amount, fx_rate, valuation_usdt, created_at, consumed_at
		FROM ton_events
		WHERE id = $1
	`, id)
	return scanTonEvent(row)
}

// TxHashExists checks whether an on-chain transaction was already delivered.
func (r *TonEventRepository) TxHashExists(ctx context.Context, tonTxHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ton_events WHERE ton_tx_hash = $1)`, tonTxHash).Scan(&exists)
	return exists, err
}

// ClaimWithTx marks an event consumed, compare-and-swap on consumed_at.
// Returns false when the event is absent or already claimed; the guard in the
// WHERE clause, not a prior read, is what closes the double-spend race.
func (r *TonEventRepository) ClaimWithTx(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var consumedAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE ton_events
		SET consumed_at = now()
		WHERE id = $1 AND consumed_at IS NULL
		RETURNING consumed_at
	`, id).Scan(&consumedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func scanTonEvent(row pgx.Row) (*domain.TonEvent, error) {
	var e domain.TonEvent
	var consumedAt *time.Time

	if err := row.Scan(
		&e.ID, &e.DepositID, &e.InvestorKey, &e.TonTxHash,
		&e.UsdtAmount, &e.DctAmount, &e.FxRate, &e.ValuationUsdt,
		&e.CreatedAt, &consumedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	e.ConsumedAt = consumedAt
	return &e, nil
}
