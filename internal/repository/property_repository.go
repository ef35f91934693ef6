package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
)

// PropertyListParams параметры фильтрации списка объектов.
type PropertyListParams struct {
	City     string
	DealType string
	Status   string
	OwnerID  *uuid.UUID
	Limit    int
	Offset   int
}

// PropertyRepository отвечает за объекты недвижимости.
type PropertyRepository struct {
	db *sqlx.DB
}

// NewPropertyRepository создаёт экземпляр репозитория.
func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Create создаёт объект недвижимости.
func (r *PropertyRepository) Create(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO properties (owner_id, title, description, address, city, deal_type, price, rooms, area, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		property.OwnerID,
		property.Title,
		property.Description,
		property.Address,
		property.City,
		property.DealType,
		property.Price,
		property.Rooms,
		property.Area,
		property.Status,
	).Scan(&property.ID, &property.CreatedAt, &property.UpdatedAt); err != nil {
		return fmt.Errorf("property repository: create %w", err)
	}

	return nil
}

// GetByID возвращает объект по идентификатору.
func (r *PropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := r.db.GetContext(ctx, &property, `SELECT * FROM properties WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("property repository: get by id %w", err)
	}

	return &property, nil
}

// Update обновляет редактируемые поля объекта.
func (r *PropertyRepository) Update(ctx context.Context, property *models.Property) error {
	query := `
		UPDATE properties
		SET title = $1, description = $2, address = $3, city = $4, deal_type = $5,
		    price = $6, rooms = $7, area = $8, status = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		property.Title,
		property.Description,
		property.Address,
		property.City,
		property.DealType,
		property.Price,
		property.Rooms,
		property.Area,
		property.Status,
		property.ID,
	).Scan(&property.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrPropertyNotFound
		}
		return fmt.Errorf("property repository: update %w", err)
	}

	return nil
}

// List возвращает объекты с фильтрацией и пагинацией.
func (r *PropertyRepository) List(ctx context.Context, params PropertyListParams) ([]models.Property, error) {
	query := `SELECT * FROM properties WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if params.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, params.Status)
		argIndex++
	}

	if params.City != "" {
		query += fmt.Sprintf(" AND city = $%d", argIndex)
		args = append(args, params.City)
		argIndex++
	}

	if params.DealType != "" {
		query += fmt.Sprintf(" AND deal_type = $%d", argIndex)
		args = append(args, params.DealType)
		argIndex++
	}

	if params.OwnerID != nil {
		query += fmt.Sprintf(" AND owner_id = $%d", argIndex)
		args = append(args, *params.OwnerID)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, params.Limit)
		argIndex++
	}

	if params.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, params.Offset)
	}

	var properties []models.Property
	if err := r.db.SelectContext(ctx, &properties, query, args...); err != nil {
		return nil, fmt.Errorf("property repository: list %w", err)
	}

	return properties, nil
}

// AddPhoto прикрепляет фотографию к объекту.
func (r *PropertyRepository) AddPhoto(ctx context.Context, photo *models.PropertyPhoto) error {
	query := `
		INSERT INTO property_photos (property_id, file_path, file_type, file_size)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		photo.PropertyID,
		photo.FilePath,
		photo.FileType,
		photo.FileSize,
	).Scan(&photo.ID, &photo.CreatedAt); err != nil {
		return fmt.Errorf("property repository: add photo %w", err)
	}

	return nil
}

// ListPhotos возвращает фотографии объекта.
func (r *PropertyRepository) ListPhotos(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyPhoto, error) {
	var photos []models.PropertyPhoto
	err := r.db.SelectContext(ctx, &photos,
		`SELECT * FROM property_photos WHERE property_id = $1 ORDER BY created_at`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("property repository: list photos %w", err)
	}
	return photos, nil
}
