package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/auth-api/internal/mail"
	"github.com/pribylovaa/auth-api/internal/models"
	"github.com/pribylovaa/auth-api/internal/pkg/log"
	"github.com/pribylovaa/auth-api/internal/pkg/redact"
	"github.com/pribylovaa/auth-api/internal/storage"
)

// resetTokenSeparator разделяет случайную часть reset-токена и одноразовый
// секрет в составном токене. Обе части — hex, поэтому «+» внутри частей
// появиться не может и разбор однозначен.
const resetTokenSeparator = "+"

// ForgotPassword запускает flow сброса пароля.
//
// Ответ всегда успешен независимо от существования email (защита от перебора):
// несуществующий адрес просто не получает письма. Для существующего пользователя
// генерируется составной токен из двух случайных частей: значения и одноразового
// секрета. В хранилище попадает только HMAC-дайджест значения, ключом которого
// служит секрет; сам секрет уходит пользователю внутри токена и на сервере не
// остаётся — без него дайджест не восстановить даже по дампу БД.
//
// Если почтовый коллаборатор не смог доставить ссылку, только что созданный
// запрос на сброс откатывается: «мёртвый» токен не должен оставаться активным.
func (s *Service) ForgotPassword(ctx context.Context, email, resetURLBase string) error {
	const op = "service.reset.ForgotPassword"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Успешная форма ответа без каких-либо действий.
			lg.Info("reset_requested_unknown_email",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	value, err := randomHex(16)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	secret, err := randomHex(16)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	reset := &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: hashToken(value, secret),
		ExpiresAt: now.Add(s.resetCfg.TokenTTL),
		CreatedAt: now,
	}

	if err := s.storage.UpsertPasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	opaque := value + resetTokenSeparator + secret
	resetURL := strings.TrimRight(resetURLBase, "/") + "/" + url.PathEscape(opaque)

	msg := mail.Message{
		To:      user.Email,
		Subject: "Reset password",
		HTML:    mail.ResetLinkHTML(resetURL, s.resetCfg.TokenTTL.String()),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		// Откат: не оставляем активным токен, ссылку на который никто не получил.
		if rbErr := s.storage.DeletePasswordReset(ctx, user.ID); rbErr != nil {
			lg.Error("reset_rollback_failed",
				slog.String("op", op),
				slog.String("err", rbErr.Error()),
			)
		}

		lg.Error("reset_mail_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(user.Email)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, ErrMailDelivery)
	}

	lg.Info("reset_link_sent",
		slog.String("op", op),
		slog.String("email", redact.Email(user.Email)),
	)

	return nil
}

// ResetPassword завершает flow сброса: проверяет составной токен и ставит
// новый пароль. Токен одноразовый — успешный сброс снимает ожидающий запрос.
//
// «Токен не найден» и «токен просрочен» для вызывающего неразличимы:
// оба случая — ErrInvalidResetToken с одним сообщением.
func (s *Service) ResetPassword(ctx context.Context, opaqueToken, newPassword string) error {
	const op = "service.reset.ResetPassword"

	lg := log.From(ctx)

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	value, secret, ok := splitResetToken(opaqueToken)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrInvalidResetToken)
	}

	hash := hashToken(value, secret)

	user, err := s.storage.UserByResetHash(ctx, hash, time.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidResetToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Смена пароля и снятие ожидающего запроса — одна транзакция:
	// нельзя оставить токен живым при уже обновлённом пароле.
	if err := s.storage.CompletePasswordReset(ctx, user.ID, hashedPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Уведомление о смене пароля — fire-and-forget: его неудача не должна
	// провалить уже завершённый сброс, ответа никто не ждёт.
	go func(email string) {
		msg := mail.Message{
			To:      email,
			Subject: "Password changed",
			HTML:    mail.PasswordChangedHTML(),
		}

		if err := s.mailer.Send(context.WithoutCancel(ctx), msg); err != nil {
			lg.Warn("password_changed_mail_failed",
				slog.String("op", op),
				slog.String("email", redact.Email(email)),
				slog.String("err", err.Error()),
			)
		}
	}(user.Email)

	lg.Info("password_reset_completed",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return nil
}

// splitResetToken разбирает составной reset-токен на значение и секрет.
// Терпимо относится к percent-encoding: токен мог приехать как сегмент пути.
func splitResetToken(opaque string) (value, secret string, ok bool) {
	if unescaped, err := url.PathUnescape(opaque); err == nil {
		opaque = unescaped
	}

	value, secret, ok = strings.Cut(opaque, resetTokenSeparator)
	if !ok || value == "" || secret == "" {
		return "", "", false
	}

	return value, secret, true
}
