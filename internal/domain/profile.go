package domain

import "time"

// Role of a profile within the platform
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Profile struct {
	ID          int64     `db:"id" json:"id"`
	TelegramID  int64     `db:"telegram_id" json:"telegram_id"`
	Role        Role      `db:"role" json:"role"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the profile may perform admin-only operations.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
