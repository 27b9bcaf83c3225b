package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pribylovaa/auth-api/internal/models"

	"github.com/google/uuid"
)

// SaveRefreshToken добавляет дайджест в коллекцию активных токенов пользователя.
// Повторная вставка того же дайджеста поглощается (ON CONFLICT DO NOTHING):
// дубликаты не ожидаются, но и не должны ломать выпуск токена.
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	query := `
        INSERT INTO refresh_tokens(token_hash, user_id, created_at, expires_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (token_hash) DO NOTHING
    `

	_, err := s.db.Exec(ctx, query,
		token.TokenHash,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// HasRefreshToken проверяет членство дайджеста в коллекции пользователя.
// Просроченные записи отфильтровываются запросом: даже если фоновая очистка
// отстала, просроченный токен никогда не считается активным.
func (s *Storage) HasRefreshToken(ctx context.Context, userID uuid.UUID, hash string) (bool, error) {
	const op = "storage.postgres.HasRefreshToken"

	query := `
        SELECT EXISTS(
            SELECT 1
            FROM refresh_tokens
            WHERE user_id = $1 AND token_hash = $2 AND expires_at > $3
        )
    `

	var exists bool
	if err := s.db.QueryRow(ctx, query, userID, hash, time.Now().UTC()).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// DeleteRefreshToken удаляет один дайджест пользователя.
// Отсутствие записи — не ошибка: повторный logout с тем же токеном идемпотентен.
func (s *Storage) DeleteRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error {
	const op = "storage.postgres.DeleteRefreshToken"

	query := `
        DELETE FROM refresh_tokens
        WHERE user_id = $1 AND token_hash = $2
    `

	if _, err := s.db.Exec(ctx, query, userID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteAllRefreshTokens очищает всю коллекцию пользователя (logout everywhere).
func (s *Storage) DeleteAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.postgres.DeleteAllRefreshTokens"

	query := `
        DELETE FROM refresh_tokens
        WHERE user_id = $1
    `

	if _, err := s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredTokens удаляет все просроченные дайджесты.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredTokens"

	query := `
        DELETE FROM refresh_tokens
        WHERE expires_at <= $1
    `

	if _, err := s.db.Exec(ctx, query, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
