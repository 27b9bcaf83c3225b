package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/pribylovaa/auth-api/internal/cache"
	"github.com/pribylovaa/auth-api/internal/models"
	"github.com/pribylovaa/auth-api/internal/pkg/log"
	"github.com/pribylovaa/auth-api/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterUser регистрирует нового пользователя и сразу открывает сессию.
func (s *Service) RegisterUser(ctx context.Context, firstName, lastName, email, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.RegisterUser"

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrEmptyName)
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(password); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	pair, record, err := s.buildTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	// Пользователь и дайджест его первой сессии пишутся одной транзакцией:
	// нет состояния «зарегистрирован, но без сессии» при сбое на полпути.
	if err := s.storage.SaveUserWithRefreshToken(ctx, user, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheAdd(ctx, record.TokenHash, &cache.Entry{UserID: user.ID, ExpiresAt: record.ExpiresAt})

	return pair, user, nil
}

// LoginUser выполняет вход по email+пароль.
// «Нет такого email» и «неверный пароль» намеренно неразличимы в ответе.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.LoginUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user, nil
}

// RefreshToken обменивает валидный refresh-токен на новый access-токен.
//
// Политика без ротации: refresh-токен при обмене не заменяется, его дайджест
// остаётся активным до явного logout или собственного истечения. Это осознанный
// выбор (см. DESIGN.md): ротация на каждый обмен — равноправная, более
// консервативная альтернатива, но смешивать политики нельзя. Благодаря отсутствию
// мутаций коллекции параллельные обмены одним и тем же токеном безопасны.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*models.AccessToken, uuid.UUID, error) {
	const op = "service.auth.RefreshToken"

	if refreshToken == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	userID, err := s.validateRefreshToken(refreshToken)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	hash := hashToken(refreshToken, s.authCfg.RefreshSecret)

	active, err := s.refreshTokenActive(ctx, userID, hash)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	if !active {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenNotRecognized)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenNotRecognized)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	accessToken, err := s.generateAccessToken(ctx, user.ID, user.Email, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AccessToken{
		Token:     accessToken,
		ExpiresAt: now.Add(s.authCfg.AccessTokenTTL),
	}, user.ID, nil
}

// Logout отзывает refresh-токен одного устройства.
// Идемпотентен: повторный вызов с уже отозванным токеном завершается успешно.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	const op = "service.auth.Logout"

	if refreshToken == "" {
		return fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	hash := hashToken(refreshToken, s.authCfg.RefreshSecret)

	// Сначала кэш, затем хранилище. Порядок важен: успешный logout гарантирует,
	// что запись о дайджесте из кэша снята, и refreshTokenActive не сможет
	// посчитать отозванный токен живым по устаревшему попаданию. Ошибка кэша
	// проваливает logout целиком — клиент повторит запрос.
	if err := s.cacheRemove(ctx, userID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteRefreshToken(ctx, userID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LogoutAll отзывает все refresh-токены пользователя (выход на всех устройствах,
// принудительная инвалидация при компрометации).
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.LogoutAll"

	// Порядок тот же, что в Logout: кэш очищается до хранилища,
	// чтобы после успешного ответа в нём не осталось живых дайджестов.
	if err := s.cacheRemoveAll(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteAllRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ValidateToken проверяет access-токен и возвращает данные пользователя.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (uuid.UUID, string, error) {
	const op = "service.auth.ValidateToken"

	uid, email, err := s.validateAccessToken(accessToken)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return uid, email, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}

// buildTokenPair выпускает пару access+refresh и готовит запись дайджеста
// для хранилища, ничего не сохраняя. Сырой refresh-токен уходит только
// клиенту и нигде не сохраняется.
func (s *Service) buildTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, *models.RefreshToken, error) {
	const op = "service.auth.buildTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, user.ID, user.Email, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	record := &models.RefreshToken{
		TokenHash: hashToken(refreshToken, s.authCfg.RefreshSecret),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.authCfg.RefreshTokenTTL),
	}

	pair := &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: now.Add(s.authCfg.AccessTokenTTL),
	}

	return pair, record, nil
}

// issueTokenPair — buildTokenPair плюс регистрация дайджеста в коллекции
// активных токенов пользователя (вход в уже существующий аккаунт).
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	pair, record, err := s.buildTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SaveRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheAdd(ctx, record.TokenHash, &cache.Entry{UserID: user.ID, ExpiresAt: record.ExpiresAt})

	return pair, nil
}

// refreshTokenActive проверяет членство дайджеста: сперва кэш, затем хранилище.
// Положительному попаданию можно верить только потому, что отзыв (Logout,
// LogoutAll) очищает кэш до хранилища и проваливается при ошибке кэша:
// после успешного отзыва устаревшая «живая» запись в кэше невозможна.
// Ошибки чтения кэша трактуются как промах.
func (s *Service) refreshTokenActive(ctx context.Context, userID uuid.UUID, hash string) (bool, error) {
	const op = "service.auth.refreshTokenActive"

	if s.rcache != nil {
		entry, found, err := s.rcache.Get(ctx, hash)
		if err != nil {
			log.From(ctx).Warn("refresh_cache_get_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if found && entry.UserID == userID && time.Now().UTC().Before(entry.ExpiresAt) {
			return true, nil
		}
	}

	active, err := s.storage.HasRefreshToken(ctx, userID, hash)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return active, nil
}

// cacheAdd — best-effort: отсутствующая запись это лишь промах кэша,
// проверка уйдёт в хранилище. Ошибка не фатальна и только логируется.
func (s *Service) cacheAdd(ctx context.Context, hash string, e *cache.Entry) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.Add(ctx, hash, e); err != nil {
		log.From(ctx).Warn("refresh_cache_add_failed", slog.String("err", err.Error()))
	}
}

// cacheRemove / cacheRemoveAll, в отличие от cacheAdd, обязаны завершиться:
// оставшаяся после отзыва запись воскресила бы отозванный токен на время TTL.
// Ошибка возвращается вызывающему и проваливает отзыв.
func (s *Service) cacheRemove(ctx context.Context, userID uuid.UUID, hash string) error {
	if s.rcache == nil {
		return nil
	}

	if err := s.rcache.Remove(ctx, userID, hash); err != nil {
		log.From(ctx).Error("refresh_cache_remove_failed", slog.String("err", err.Error()))
		return fmt.Errorf("refresh cache remove: %w", err)
	}

	return nil
}

func (s *Service) cacheRemoveAll(ctx context.Context, userID uuid.UUID) error {
	if s.rcache == nil {
		return nil
	}

	if err := s.rcache.RemoveAll(ctx, userID); err != nil {
		log.From(ctx).Error("refresh_cache_remove_all_failed", slog.String("err", err.Error()))
		return fmt.Errorf("refresh cache remove all: %w", err)
	}

	return nil
}
