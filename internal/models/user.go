package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает сущность пользователя платформы.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Roles        []string   `db:"roles" json:"roles"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// RoleSet возвращает роли пользователя как типизированное множество.
func (u *User) RoleSet() RoleSet {
	return RoleSetFromStrings(u.Roles)
}

// Profile описывает публичный профиль пользователя.
// IDDocumentNumber заполняется при первом подписании договора и
// сверяется при последующих.
type Profile struct {
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	DisplayName      string     `db:"display_name" json:"display_name"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Bio              *string    `db:"bio" json:"bio,omitempty"`
	IDDocumentNumber *string    `db:"id_document_number" json:"-"`
	PhotoPath        *string    `db:"photo_path" json:"photo_path,omitempty"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
