package models

import (
	"time"

	"github.com/google/uuid"
)

// Property описывает объект недвижимости, выставленный на площадке.
type Property struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Address     string    `db:"address" json:"address"`
	City        string    `db:"city" json:"city"`
	DealType    string    `db:"deal_type" json:"deal_type"`
	Price       float64   `db:"price" json:"price"`
	Rooms       int       `db:"rooms" json:"rooms"`
	Area        *float64  `db:"area" json:"area,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Photos []PropertyPhoto `json:"photos,omitempty"`
}

// PropertyPhoto описывает фотографию объекта.
type PropertyPhoto struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PropertyID uuid.UUID `db:"property_id" json:"property_id"`
	FilePath   string    `db:"file_path" json:"file_path"`
	FileType   string    `db:"file_type" json:"file_type"`
	FileSize   int64     `db:"file_size" json:"file_size"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
