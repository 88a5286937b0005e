package repository

import (
	"context"
	"errors"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvestorRepository struct {
	db *pgxpool.Pool
}

func NewInvestorRepository(db *pgxpool.Pool) *InvestorRepository {
	return &InvestorRepository{db: db}
}

// GetByProfileID retrieves the investor backing a profile; returns nil when absent.
func (r *InvestorRepository) GetByProfileID(ctx context.Context, profileID int64) (*domain.Investor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, profile_id, status, joined_at
		FROM investors
		WHERE profile_id = $1
	`, profileID)
	return scanInvestor(row)
}

// CreateWithTx inserts a new investor inside an existing transaction.
// Investors are created lazily on a profile's first deposit.
func (r *InvestorRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, inv *domain.Investor) error {
	if inv.Status == "" {
		inv.Status = domain.InvestorStatusActive
	}
	return tx.QueryRow(ctx, `
		INSERT INTO investors (profile_id, status)
		VALUES ($1, $2)
		RETURNING id, joined_at
	`, inv.ProfileID, inv.Status).Scan(&inv.ID, &inv.JoinedAt)
}

// GetContacts returns the Telegram contact info for the given investors.
func (r *InvestorRepository) GetContacts(ctx context.Context, investorIDs []int64) ([]domain.InvestorContact, error) {
	if len(investorIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT i.id, p.telegram_id, COALESCE(p.display_name, '')
		FROM investors i
		JOIN profiles p ON p.id = i.profile_id
		WHERE i.id = ANY($1)
	`, investorIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.InvestorContact
	for rows.Next() {
		var c domain.InvestorContact
		if err := rows.Scan(&c.InvestorID, &c.TelegramID, &c.DisplayName); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func scanInvestor(row pgx.Row) (*domain.Investor, error) {
	var inv domain.Investor
	if err := row.Scan(&inv.ID, &inv.ProfileID, &inv.Status, &inv.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}
