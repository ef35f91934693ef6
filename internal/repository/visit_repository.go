package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
)

// VisitRepository отвечает за заявки на просмотр.
type VisitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository создаёт экземпляр репозитория.
func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create создаёт заявку на просмотр.
func (r *VisitRepository) Create(ctx context.Context, visit *models.Visit) error {
	query := `
		INSERT INTO visits (property_id, client_id, requested_at, status, last_action_by, client_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		visit.PropertyID,
		visit.ClientID,
		visit.RequestedAt,
		visit.Status,
		visit.LastActionBy,
		visit.ClientMessage,
	).Scan(&visit.ID, &visit.CreatedAt, &visit.UpdatedAt); err != nil {
		return fmt.Errorf("visit repository: create %w", err)
	}

	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *VisitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	var visit models.Visit
	if err := r.db.GetContext(ctx, &visit, `SELECT * FROM visits WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrVisitNotFound
		}
		return nil, fmt.Errorf("visit repository: get by id %w", err)
	}

	return &visit, nil
}

// Update сохраняет изменяемые поля заявки после перехода состояния.
func (r *VisitRepository) Update(ctx context.Context, visit *models.Visit) error {
	query := `
		UPDATE visits
		SET requested_at = $1, owner_proposed_at = $2, client_proposed_at = $3,
		    scheduled_at = $4, status = $5, last_action_by = $6,
		    client_message = $7, owner_message = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		visit.RequestedAt,
		visit.OwnerProposedAt,
		visit.ClientProposedAt,
		visit.ScheduledAt,
		visit.Status,
		visit.LastActionBy,
		visit.ClientMessage,
		visit.OwnerMessage,
		visit.ID,
	).Scan(&visit.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrVisitNotFound
		}
		return fmt.Errorf("visit repository: update %w", err)
	}

	return nil
}

// HasActiveVisit проверяет, есть ли у клиента активная заявка на объект.
func (r *VisitRepository) HasActiveVisit(ctx context.Context, clientID, propertyID uuid.UUID) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM visits
		WHERE client_id = $1 AND property_id = $2 AND status = ANY($3)
	`, clientID, propertyID, pq.Array(models.ActiveVisitStatuses))
	if err != nil {
		return false, fmt.Errorf("visit repository: has active visit %w", err)
	}

	return count > 0, nil
}

// ListByClient возвращает заявки клиента.
func (r *VisitRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Visit, error) {
	var visits []models.Visit
	err := r.db.SelectContext(ctx, &visits,
		`SELECT * FROM visits WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("visit repository: list by client %w", err)
	}
	return visits, nil
}

// ListByOwnerProperties возвращает заявки по всем объектам собственника.
func (r *VisitRepository) ListByOwnerProperties(ctx context.Context, ownerID uuid.UUID) ([]models.Visit, error) {
	var visits []models.Visit
	err := r.db.SelectContext(ctx, &visits, `
		SELECT v.* FROM visits v
		JOIN properties p ON p.id = v.property_id
		WHERE p.owner_id = $1
		ORDER BY v.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("visit repository: list by owner %w", err)
	}
	return visits, nil
}

// CompleteExpired переводит в completed все подтверждённые просмотры,
// дата которых раньше cutoff. Возвращает число обновлённых строк.
func (r *VisitRepository) CompleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE visits SET status = $1, updated_at = NOW()
		WHERE status = $2 AND scheduled_at < $3
	`, models.VisitStatusCompleted, models.VisitStatusScheduled, cutoff)
	if err != nil {
		return 0, fmt.Errorf("visit repository: complete expired %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("visit repository: complete expired rows affected %w", err)
	}

	return affected, nil
}
