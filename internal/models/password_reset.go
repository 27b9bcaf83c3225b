package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordReset — ожидающий запрос на смену пароля (не более одного на пользователя).
//
// TokenHash — HMAC-SHA256-дайджест случайной части reset-токена, ключом служит
// одноразовый секрет, который уходит пользователю вместе с токеном и на сервере
// не сохраняется. ExpiresAt — момент, после которого токен недействителен
// (сравнение строгое: в сам момент истечения токен уже отклоняется).
type PasswordReset struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
