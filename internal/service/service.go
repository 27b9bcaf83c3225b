// service содержит бизнес-логику auth-api:
// регистрацию/аутентификацию пользователей, выпуск/проверку/отзыв токенов
// и flow сброса пароля; работа с хранилищем идёт через интерфейсы пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Сессионное состояние живёт только в хранилище (коллекция refresh-дайджестов
//     и ожидающие сбросы пароля); в памяти между запросами ничего не удерживается.
//   - Ошибки возвращаются наружу и маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/auth-api/internal/cache"
	"github.com/pribylovaa/auth-api/internal/config"
	"github.com/pribylovaa/auth-api/internal/mail"
	"github.com/pribylovaa/auth-api/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Намеренно не различает эти случаи (защита от перебора email).
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoRefreshToken — refresh-токен не предъявлен (cookie отсутствует/пустая).
	// Транспорт: HTTP 401, reason "no_rft".
	ErrNoRefreshToken = errors.New("refresh token is missing")

	// ErrInvalidToken — токен некорректен по формату/подписи.
	// Транспорт: HTTP 401, reason "token_error".
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк (подпись валидна).
	// Для refresh-токена это сигнал к повторному входу.
	// Транспорт: HTTP 401, reason "expired".
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotRecognized — подпись валидна, но дайджест токена отсутствует
	// в коллекции активных: токен отозван (logout) или никогда не выпускался.
	// Транспорт: HTTP 401, reason "not_recognized".
	ErrTokenNotRecognized = errors.New("token not recognized")

	// ErrEmailTaken — e-mail уже занят другим пользователем.
	// Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail имеет некорректный формат.
	// Транспорт: HTTP 422.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: HTTP 422.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой.
	// Транспорт: HTTP 422.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrEmptyName — имя или фамилия не заполнены при регистрации.
	// Транспорт: HTTP 422.
	ErrEmptyName = errors.New("name is empty")

	// ErrInvalidResetToken — reset-токен не найден или просрочен.
	// Оба случая намеренно неразличимы для вызывающего.
	// Транспорт: HTTP 400.
	ErrInvalidResetToken = errors.New("reset token is invalid")

	// ErrMailDelivery — почтовый коллаборатор не смог доставить письмо;
	// созданный запрос на сброс при этом откатывается.
	// Транспорт: HTTP 500 без деталей.
	ErrMailDelivery = errors.New("mail delivery failed")
)

// Service описывает бизнес-логику auth-api.
type Service struct {
	storage  storage.Storage
	mailer   mail.Mailer
	authCfg  config.AuthConfig
	resetCfg config.ResetConfig
	rcache   cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, mailer mail.Mailer, authCfg config.AuthConfig, resetCfg config.ResetConfig) *Service {
	return &Service{
		storage:  storage,
		mailer:   mailer,
		authCfg:  authCfg,
		resetCfg: resetCfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-дайджестов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
