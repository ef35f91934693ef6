package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
)

// UserRepository отвечает за пользователей, профили и сессии.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, roles, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		user.Email,
		user.Username,
		user.PasswordHash,
		pq.Array(user.Roles),
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, email, username, password_hash, roles, is_active, last_login_at, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row, "get by id")
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, email, username, password_hash, roles, is_active, last_login_at, created_at, updated_at
		FROM users WHERE email = $1
	`, strings.ToLower(email))
	return scanUser(row, "get by email")
}

// FindByContactIdentifier пытается найти пользователя по контактному
// идентификатору: сначала по телефону профиля (перебирая кандидатов
// нормализации), затем по email.
func (r *UserRepository) FindByContactIdentifier(ctx context.Context, candidates []string) (*models.User, error) {
	if len(candidates) == 0 {
		return nil, apperror.ErrUserNotFound
	}

	row := r.db.QueryRowxContext(ctx, `
		SELECT u.id, u.email, u.username, u.password_hash, u.roles, u.is_active, u.last_login_at, u.created_at, u.updated_at
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		WHERE p.phone = ANY($1)
		LIMIT 1
	`, pq.Array(candidates))

	user, err := scanUser(row, "find by phone")
	if err == nil {
		return user, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	row = r.db.QueryRowxContext(ctx, `
		SELECT id, email, username, password_hash, roles, is_active, last_login_at, created_at, updated_at
		FROM users WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(candidates[0])))
	return scanUser(row, "find by email")
}

// UpdateRoles заменяет набор ролей пользователя.
func (r *UserRepository) UpdateRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET roles = $1, updated_at = NOW() WHERE id = $2`,
		pq.Array(roles), userID)
	if err != nil {
		return fmt.Errorf("user repository: update roles %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: update roles rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrUserNotFound
	}

	return nil
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return nil
}

// GetProfile возвращает профиль пользователя.
func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE user_id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get profile %w", err)
	}

	return &profile, nil
}

// UpsertProfile создаёт или обновляет профиль.
func (r *UserRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, display_name, phone, bio, id_document_number, photo_path, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			phone = EXCLUDED.phone,
			bio = EXCLUDED.bio,
			id_document_number = EXCLUDED.id_document_number,
			photo_path = EXCLUDED.photo_path,
			updated_at = NOW()
		RETURNING updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		profile.UserID,
		profile.DisplayName,
		profile.Phone,
		profile.Bio,
		profile.IDDocumentNumber,
		profile.PhotoPath,
	).Scan(&profile.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: upsert profile %w", err)
	}

	return nil
}

// SetIDDocumentNumber записывает номер документа в профиль. Вызывается
// при первом подписании договора.
func (r *UserRepository) SetIDDocumentNumber(ctx context.Context, userID uuid.UUID, idNumber string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET id_document_number = $1, updated_at = NOW() WHERE user_id = $2`,
		idNumber, userID)
	if err != nil {
		return fmt.Errorf("user repository: set id document %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: set id document rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrUserNotFound
	}

	return nil
}

// CreateSession сохраняет refresh сессию.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		session.UserID,
		session.RefreshToken,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}

	return nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// ListSessions возвращает активные сессии пользователя.
func (r *UserRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.SelectContext(ctx, &sessions,
		`SELECT * FROM sessions WHERE user_id = $1 AND expires_at > NOW() ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("user repository: list sessions %w", err)
	}
	return sessions, nil
}

// DeleteSessionByID удаляет конкретную сессию пользователя.
func (r *UserRepository) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete session by id %w", err)
	}
	return nil
}

// DeleteAllSessionsExcept удаляет все сессии пользователя кроме текущей.
func (r *UserRepository) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND refresh_token <> $2`,
		userID, exceptRefreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete all sessions %w", err)
	}
	return nil
}

// scanUser разбирает строку пользователя, конвертируя roles из text[].
func scanUser(row *sqlx.Row, op string) (*models.User, error) {
	var user models.User
	var roles pq.StringArray

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&roles,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: %s %w", op, err)
	}

	user.Roles = []string(roles)
	return &user, nil
}
