package repository

import (
	"context"
	"errors"

	"github.com/Dynamic-Capital/Dynamic-Capital-sub009/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile by ID; returns nil when absent.
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, telegram_id, role, COALESCE(display_name, ''), created_at
		FROM profiles
		WHERE id = $1
	`, id)
	return scanProfile(row)
}

// GetByTelegramID retrieves a profile by Telegram user ID; returns nil when absent.
func (r *ProfileRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, telegram_id, role, COALESCE(display_name, ''), created_at
		FROM profiles
		WHERE telegram_id = $1
	`, telegramID)
	return scanProfile(row)
}

// Create inserts a new profile with role=user.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	if p.Role == "" {
		p.Role = domain.RoleUser
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO profiles (telegram_id, role, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, p.TelegramID, p.Role, p.DisplayName).Scan(&p.ID, &p.CreatedAt)
}

// SetRole updates a profile's role.
func (r *ProfileRepository) SetRole(ctx context.Context, id int64, role domain.Role) error {
	_, err := r.db.Exec(ctx, `UPDATE profiles SET role = $2 WHERE id = $1`, id, role)
	return err
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.TelegramID, &p.Role, &p.DisplayName, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
