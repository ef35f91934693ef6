package dto

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest запрос регистрации пользователя.
type RegisterRequest struct {
	Email       string   `json:"email" binding:"required"`
	Password    string   `json:"password" binding:"required"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	DisplayName string   `json:"display_name"`
	Phone       string   `json:"phone"`
}

// LoginRequest запрос входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest запрос обновления пары токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest запрос обновления профиля.
type UpdateProfileRequest struct {
	DisplayName string  `json:"display_name" binding:"required"`
	Phone       *string `json:"phone"`
	Bio         *string `json:"bio"`
}

// PropertyRequest запрос создания или изменения объявления.
type PropertyRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Address     string   `json:"address" binding:"required"`
	City        string   `json:"city" binding:"required"`
	DealType    string   `json:"deal_type" binding:"required"`
	Price       float64  `json:"price" binding:"required"`
	Rooms       int      `json:"rooms"`
	Area        *float64 `json:"area"`
}

// PropertyStatusRequest запрос смены статуса объявления.
type PropertyStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// VisitRequest запрос на просмотр объекта.
type VisitRequest struct {
	PropertyID  uuid.UUID `json:"property_id" binding:"required"`
	RequestedAt time.Time `json:"requested_at" binding:"required"`
	Message     string    `json:"message"`
}

// VisitRespondRequest ответ стороны на текущее предложение по заявке.
type VisitRespondRequest struct {
	Action     string     `json:"action" binding:"required"`
	ProposedAt *time.Time `json:"proposed_at"`
	Message    string     `json:"message"`
}

// ContractCreateRequest запрос создания договора.
type ContractCreateRequest struct {
	PropertyID             uuid.UUID  `json:"property_id" binding:"required"`
	Kind                   string     `json:"kind" binding:"required"`
	CounterpartyIdentifier string     `json:"counterparty_identifier" binding:"required"`
	Amount                 float64    `json:"amount" binding:"required"`
	StartDate              time.Time  `json:"start_date" binding:"required"`
	EndDate                *time.Time `json:"end_date"`
}
