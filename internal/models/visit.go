package models

import (
	"time"

	"github.com/google/uuid"
)

// Visit описывает заявку на просмотр объекта: переговоры о дате между
// клиентом и собственником. Актуальная дата зависит от статуса:
// в pending_owner это client_proposed_at ?? requested_at,
// в pending_client это owner_proposed_at, в scheduled это scheduled_at.
type Visit struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PropertyID       uuid.UUID  `db:"property_id" json:"property_id"`
	ClientID         uuid.UUID  `db:"client_id" json:"client_id"`
	RequestedAt      time.Time  `db:"requested_at" json:"requested_at"`
	OwnerProposedAt  *time.Time `db:"owner_proposed_at" json:"owner_proposed_at,omitempty"`
	ClientProposedAt *time.Time `db:"client_proposed_at" json:"client_proposed_at,omitempty"`
	ScheduledAt      *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status           string     `db:"status" json:"status"`
	LastActionBy     *string    `db:"last_action_by" json:"last_action_by,omitempty"`
	ClientMessage    *string    `db:"client_message" json:"client_message,omitempty"`
	OwnerMessage     *string    `db:"owner_message" json:"owner_message,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal сообщает, завершены ли переговоры по заявке.
func (v *Visit) IsTerminal() bool {
	switch v.Status {
	case VisitStatusDeclined, VisitStatusCancelled, VisitStatusCompleted:
		return true
	}
	return false
}

// CurrentClientAsk возвращает актуальную дату, предложенную клиентом.
func (v *Visit) CurrentClientAsk() time.Time {
	if v.ClientProposedAt != nil {
		return *v.ClientProposedAt
	}
	return v.RequestedAt
}
