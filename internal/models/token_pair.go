package models

import "time"

// TokenPair — пара токенов, выдаваемая при аутентификации/регистрации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API; валидность доказывается
//     только подписью, без обращения к хранилищу;
//   - RefreshToken — долгоживущий подписанный токен, которым клиент обновляет
//     access-токен; на сервере хранится только его дайджест;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshToken — подписанный токен для обновления access-токена.
	RefreshToken string
	// AccessExpiresAt — время истечения действия access-токена (UTC).
	AccessExpiresAt time.Time
}

// AccessToken — результат обмена refresh-токена на новый access-токен.
// Refresh-токен при обмене не ротируется, поэтому возвращается только access.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}
