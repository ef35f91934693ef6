package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract описывает договор аренды или купли-продажи между собственником
// и второй стороной. Становится активным только после подписи и
// подтверждения обеих сторон.
type Contract struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PropertyID     uuid.UUID  `db:"property_id" json:"property_id"`
	OwnerID        uuid.UUID  `db:"owner_id" json:"owner_id"`
	CounterpartyID uuid.UUID  `db:"counterparty_id" json:"counterparty_id"`
	Kind           string     `db:"kind" json:"kind"`
	Amount         float64    `db:"amount" json:"amount"`
	StartDate      time.Time  `db:"start_date" json:"start_date"`
	EndDate        *time.Time `db:"end_date" json:"end_date,omitempty"`
	Text           string     `db:"contract_text" json:"-"`
	Status         string     `db:"status" json:"status"`

	OwnerSignedAt             *time.Time `db:"owner_signed_at" json:"owner_signed_at,omitempty"`
	OwnerSignaturePath        *string    `db:"owner_signature_path" json:"-"`
	CounterpartySignedAt      *time.Time `db:"counterparty_signed_at" json:"counterparty_signed_at,omitempty"`
	CounterpartySignaturePath *string    `db:"counterparty_signature_path" json:"-"`
	OwnerConfirmedAt          *time.Time `db:"owner_confirmed_at" json:"owner_confirmed_at,omitempty"`
	CounterpartyConfirmedAt   *time.Time `db:"counterparty_confirmed_at" json:"counterparty_confirmed_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsParty проверяет, является ли пользователь стороной договора.
func (c *Contract) IsParty(userID uuid.UUID) bool {
	return c.OwnerID == userID || c.CounterpartyID == userID
}

// SignedBy сообщает, подписала ли сторона договор.
func (c *Contract) SignedBy(userID uuid.UUID) bool {
	if userID == c.OwnerID {
		return c.OwnerSignedAt != nil
	}
	if userID == c.CounterpartyID {
		return c.CounterpartySignedAt != nil
	}
	return false
}

// ConfirmedBy сообщает, подтвердила ли сторона договор.
func (c *Contract) ConfirmedBy(userID uuid.UUID) bool {
	if userID == c.OwnerID {
		return c.OwnerConfirmedAt != nil
	}
	if userID == c.CounterpartyID {
		return c.CounterpartyConfirmedAt != nil
	}
	return false
}

// BothConfirmed выполняется тогда и только тогда, когда договор может
// стать активным.
func (c *Contract) BothConfirmed() bool {
	return c.OwnerConfirmedAt != nil && c.CounterpartyConfirmedAt != nil
}
