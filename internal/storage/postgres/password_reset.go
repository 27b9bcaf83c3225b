package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/auth-api/internal/models"
	"github.com/pribylovaa/auth-api/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertPasswordReset сохраняет запрос на сброс пароля, заменяя предыдущий.
// На пользователя допускается не более одного ожидающего запроса (PK user_id).
func (s *Storage) UpsertPasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	const op = "storage.postgres.UpsertPasswordReset"

	query := `
        INSERT INTO password_resets(user_id, token_hash, expires_at, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE
        SET token_hash = EXCLUDED.token_hash,
            expires_at = EXCLUDED.expires_at,
            created_at = EXCLUDED.created_at
    `

	_, err := s.db.Exec(ctx, query,
		reset.UserID,
		reset.TokenHash,
		reset.ExpiresAt,
		reset.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByResetHash находит пользователя по дайджесту reset-токена.
// Сравнение срока строгое (now < expires_at): токен, предъявленный ровно в момент
// истечения, отклоняется; просроченный и несуществующий неразличимы для вызывающего.
func (s *Storage) UserByResetHash(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	const op = "storage.postgres.UserByResetHash"

	query := `
        SELECT u.id, u.email, u.first_name, u.last_name, u.password_hash, u.created_at, u.updated_at
        FROM password_resets r
        JOIN users u ON u.id = r.user_id
        WHERE r.token_hash = $1 AND r.expires_at > $2
    `

	var user models.User
	err := s.db.QueryRow(ctx, query, hash, now).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// DeletePasswordReset снимает ожидающий запрос пользователя.
// Отсутствие записи — не ошибка (повторное потребление уже очищенного токена
// обрабатывается выше по стеку через UserByResetHash).
func (s *Storage) DeletePasswordReset(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.postgres.DeletePasswordReset"

	query := `
        DELETE FROM password_resets
        WHERE user_id = $1
    `

	if _, err := s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CompletePasswordReset атомарно обновляет хэш пароля и снимает ожидающий
// запрос на сброс. Обе операции идут одной транзакцией: после успешного
// завершения токен не может остаться живым при уже сменённом пароле,
// а при сбое пароль остаётся прежним и токен пригоден для повтора.
func (s *Storage) CompletePasswordReset(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	const op = "storage.postgres.CompletePasswordReset"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updateQuery := `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `

	cmdTag, err := tx.Exec(ctx, updateQuery, userID, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	deleteQuery := `
        DELETE FROM password_resets
        WHERE user_id = $1
    `

	if _, err := tx.Exec(ctx, deleteQuery, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredResets удаляет все просроченные запросы на сброс.
func (s *Storage) DeleteExpiredResets(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredResets"

	query := `
        DELETE FROM password_resets
        WHERE expires_at <= $1
    `

	if _, err := s.db.Exec(ctx, query, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
