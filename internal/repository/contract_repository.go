package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
)

// ContractParty сторона договора в колонках подписи/подтверждения.
type ContractParty string

const (
	PartyOwner        ContractParty = "owner"
	PartyCounterparty ContractParty = "counterparty"
)

// ContractRepository отвечает за договоры.
type ContractRepository struct {
	db *sqlx.DB
}

// NewContractRepository создаёт экземпляр репозитория.
func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create создаёт договор в статусе pending_signatures.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	query := `
		INSERT INTO contracts (property_id, owner_id, counterparty_id, kind, amount, start_date, end_date, contract_text, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		contract.PropertyID,
		contract.OwnerID,
		contract.CounterpartyID,
		contract.Kind,
		contract.Amount,
		contract.StartDate,
		contract.EndDate,
		contract.Text,
		contract.Status,
	).Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt); err != nil {
		return fmt.Errorf("contract repository: create %w", err)
	}

	return nil
}

// GetByID возвращает договор по идентификатору.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, `SELECT * FROM contracts WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by id %w", err)
	}

	return &contract, nil
}

// ListByParty возвращает договоры, в которых пользователь участвует.
func (r *ContractRepository) ListByParty(ctx context.Context, userID uuid.UUID) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.SelectContext(ctx, &contracts, `
		SELECT * FROM contracts
		WHERE owner_id = $1 OR counterparty_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("contract repository: list by party %w", err)
	}
	return contracts, nil
}

// HasBlockingRental проверяет, мешает ли объекту существующий договор
// аренды: активный либо ожидающий подписей, срок которого ещё не истёк.
func (r *ContractRepository) HasBlockingRental(ctx context.Context, propertyID uuid.UUID, now time.Time) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM contracts
		WHERE property_id = $1 AND kind = $2
		  AND status IN ($3, $4)
		  AND (end_date IS NULL OR end_date > $5)
	`, propertyID, models.ContractKindRental,
		models.ContractStatusPendingSignatures, models.ContractStatusActive, now)
	if err != nil {
		return false, fmt.Errorf("contract repository: has blocking rental %w", err)
	}

	return count > 0, nil
}

// HasBlockingSale проверяет, существует ли по объекту договор
// купли-продажи в статусе active или pending_signatures.
func (r *ContractRepository) HasBlockingSale(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM contracts
		WHERE property_id = $1 AND kind = $2 AND status IN ($3, $4)
	`, propertyID, models.ContractKindSale,
		models.ContractStatusPendingSignatures, models.ContractStatusActive)
	if err != nil {
		return false, fmt.Errorf("contract repository: has blocking sale %w", err)
	}

	return count > 0, nil
}

// SetSignature записывает подпись стороны. Guard в WHERE гарантирует,
// что повторная подпись (в том числе гонка двух запросов) не пройдёт.
func (r *ContractRepository) SetSignature(ctx context.Context, contractID uuid.UUID, party ContractParty, signedAt time.Time, signaturePath string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE contracts
		SET %[1]s_signed_at = $1, %[1]s_signature_path = $2, updated_at = NOW()
		WHERE id = $3 AND %[1]s_signed_at IS NULL
	`, party)

	result, err := r.db.ExecContext(ctx, query, signedAt, signaturePath, contractID)
	if err != nil {
		return false, fmt.Errorf("contract repository: set signature %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("contract repository: set signature rows affected %w", err)
	}

	return affected > 0, nil
}

// SetConfirmation записывает подтверждение стороны с тем же guard от
// повторного подтверждения.
func (r *ContractRepository) SetConfirmation(ctx context.Context, contractID uuid.UUID, party ContractParty, confirmedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE contracts
		SET %[1]s_confirmed_at = $1, updated_at = NOW()
		WHERE id = $2 AND %[1]s_confirmed_at IS NULL
	`, party)

	result, err := r.db.ExecContext(ctx, query, confirmedAt, contractID)
	if err != nil {
		return false, fmt.Errorf("contract repository: set confirmation %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("contract repository: set confirmation rows affected %w", err)
	}

	return affected > 0, nil
}

// Activate атомарно активирует договор и фиксирует экономический эффект:
// статус объекта и, для купли-продажи, смену собственника. Обе записи
// выполняются в одной транзакции: договор не может стать активным без
// соответствующего изменения объекта.
func (r *ContractRepository) Activate(ctx context.Context, contractID, propertyID uuid.UUID, propertyStatus string, newOwnerID *uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("contract repository: activate begin tx %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE contracts SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.ContractStatusActive, contractID, models.ContractStatusPendingSignatures)
	if err != nil {
		return fmt.Errorf("contract repository: activate contract %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("contract repository: activate rows affected %w", err)
	}
	if affected == 0 {
		return apperror.New(apperror.ErrCodeConflict, "договор уже не ожидает подписей")
	}

	if newOwnerID != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE properties SET status = $1, owner_id = $2, updated_at = NOW() WHERE id = $3
		`, propertyStatus, *newOwnerID, propertyID)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE properties SET status = $1, updated_at = NOW() WHERE id = $2
		`, propertyStatus, propertyID)
	}
	if err != nil {
		return fmt.Errorf("contract repository: activate property %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("contract repository: activate commit %w", err)
	}

	return nil
}

// CancelPending отменяет договор, пока он ожидает подписей.
// Возвращает false, если договор уже покинул статус pending_signatures.
func (r *ContractRepository) CancelPending(ctx context.Context, contractID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, models.ContractStatusCancelled, contractID, models.ContractStatusPendingSignatures)
	if err != nil {
		return false, fmt.Errorf("contract repository: cancel pending %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("contract repository: cancel pending rows affected %w", err)
	}

	return affected > 0, nil
}
