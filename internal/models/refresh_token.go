package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — запись об активной сессии пользователя на одном устройстве.
//
// Описание:
//   - TokenHash — HMAC-SHA256-дайджест «сырого» refresh-токена (hex, 64 символа);
//     сам токен на сервере не хранится, наличие дайджеста в хранилище — единственное
//     доказательство того, что исходный токен всё ещё действителен;
//   - ExpiresAt дублирует exp из подписи токена, чтобы просроченные записи
//     отфильтровывались запросами и подчищались фоновой задачей.
type RefreshToken struct {
	TokenHash string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}
