package models

import (
	"time"

	"github.com/google/uuid"
)

// User - модель пользователя в системе.
//
// PasswordHash хранит bcrypt-хэш пароля; исходный пароль нигде не сохраняется.
type User struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
