package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/auth-api/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен/запрос на сброс).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// SaveUserWithRefreshToken атомарно создает пользователя вместе с дайджестом
	// его первой сессии: либо записаны оба, либо ни одного.
	SaveUserWithRefreshToken(ctx context.Context, user *models.User, token *models.RefreshToken) error
}

// RefreshTokenStorage управляет коллекцией активных refresh-дайджестов пользователя.
type RefreshTokenStorage interface {
	// SaveRefreshToken добавляет дайджест в коллекцию активных токенов пользователя.
	// Повторное добавление того же дайджеста не является ошибкой.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// HasRefreshToken проверяет, что непросроченный дайджест числится за пользователем.
	HasRefreshToken(ctx context.Context, userID uuid.UUID, hash string) (bool, error)
	// DeleteRefreshToken удаляет один дайджест пользователя;
	// отсутствие записи — не ошибка (no-op).
	DeleteRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error
	// DeleteAllRefreshTokens очищает всю коллекцию пользователя.
	DeleteAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
	// DeleteExpiredTokens удаляет все просроченные дайджесты.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// PasswordResetStorage управляет ожидающими запросами на смену пароля.
type PasswordResetStorage interface {
	// UpsertPasswordReset сохраняет запрос на сброс, заменяя предыдущий
	// (не более одного на пользователя).
	UpsertPasswordReset(ctx context.Context, reset *models.PasswordReset) error
	// UserByResetHash находит пользователя по дайджесту reset-токена
	// с непросроченным сроком (now < expires_at строго).
	UserByResetHash(ctx context.Context, hash string, now time.Time) (*models.User, error)
	// DeletePasswordReset снимает ожидающий запрос пользователя;
	// отсутствие записи — не ошибка.
	DeletePasswordReset(ctx context.Context, userID uuid.UUID) error
	// CompletePasswordReset атомарно ставит новый хэш пароля и снимает
	// ожидающий запрос: частичного результата быть не может.
	// ErrNotFound — пользователь не существует.
	CompletePasswordReset(ctx context.Context, userID uuid.UUID, passwordHash string) error
	// DeleteExpiredResets удаляет все просроченные запросы на сброс.
	DeleteExpiredResets(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	PasswordResetStorage
	Close()
}
