package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/auth-api/internal/mail"
	"github.com/pribylovaa/auth-api/internal/models"
	"github.com/pribylovaa/auth-api/internal/storage"
)

const resetBase = "https://app.example.com/resetpass"

// opaqueFromHTML достаёт составной reset-токен из письма:
// ссылка в письме имеет вид <base>/<token>.
func opaqueFromHTML(t *testing.T, html string) string {
	t.Helper()

	idx := strings.Index(html, resetBase+"/")
	require.GreaterOrEqual(t, idx, 0, "reset link not found in mail body")

	rest := html[idx+len(resetBase)+1:]
	end := strings.IndexAny(rest, `"<>`)
	require.Greater(t, end, 0)

	return rest[:end]
}

func TestForgotPassword_OK(t *testing.T) {
	t.Parallel()

	svc, st, ml, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}

	var saved models.PasswordReset
	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().UpsertPasswordReset(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.PasswordReset) error {
			saved = *r
			return nil
		})

	var sent mail.Message
	ml.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mail.Message) error {
			sent = msg
			return nil
		})

	require.NoError(t, svc.ForgotPassword(context.Background(), "User@Example.com", resetBase))

	require.Equal(t, user.ID, saved.UserID)
	require.Len(t, saved.TokenHash, 64)
	require.WithinDuration(t, time.Now().Add(svc.resetCfg.TokenTTL), saved.ExpiresAt, 2*time.Second)

	require.Equal(t, user.Email, sent.To)

	// Токен из письма восстанавливает ровно тот дайджест, что лёг в хранилище.
	opaque := opaqueFromHTML(t, sent.HTML)
	value, secret, ok := splitResetToken(opaque)
	require.True(t, ok)
	require.Equal(t, saved.TokenHash, hashToken(value, secret))
}

func TestForgotPassword_UnknownEmail_Silent(t *testing.T) {
	t.Parallel()

	svc, st, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Ни записи в хранилище, ни письма — и при этом успешный результат.
	st.EXPECT().UserByEmail(gomock.Any(), "ghost@example.com").Return(nil, storage.ErrNotFound)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@example.com", resetBase))
}

func TestForgotPassword_MailFailure_RollsBack(t *testing.T) {
	t.Parallel()

	svc, st, ml, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	st.EXPECT().UpsertPasswordReset(gomock.Any(), gomock.Any()).Return(nil)
	ml.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))
	// Откат «мёртвого» токена, ссылку на который никто не получил.
	st.EXPECT().DeletePasswordReset(gomock.Any(), user.ID).Return(nil)

	err := svc.ForgotPassword(context.Background(), user.Email, resetBase)
	require.ErrorIs(t, err, ErrMailDelivery)
}

func TestResetPassword_OK(t *testing.T) {
	t.Parallel()

	svc, st, ml, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}
	newPW := "NewPass1!"

	value, err := randomHex(16)
	require.NoError(t, err)
	secret, err := randomHex(16)
	require.NoError(t, err)

	opaque := value + resetTokenSeparator + secret
	hash := hashToken(value, secret)

	st.EXPECT().UserByResetHash(gomock.Any(), hash, gomock.Any()).Return(user, nil)
	// Смена пароля и снятие запроса — один атомарный вызов хранилища.
	st.EXPECT().CompletePasswordReset(gomock.Any(), user.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, passwordHash string) error {
			require.True(t, checkPassword(passwordHash, newPW))
			return nil
		})

	// Уведомление уходит из отдельной горутины — дожидаемся его до Finish.
	mailSent := make(chan struct{})
	ml.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg mail.Message) error {
			require.Equal(t, user.Email, msg.To)
			close(mailSent)
			return nil
		})

	require.NoError(t, svc.ResetPassword(context.Background(), opaque, newPW))

	select {
	case <-mailSent:
	case <-time.After(2 * time.Second):
		t.Fatal("password-changed notification was not sent")
	}
}

func TestResetPassword_PercentEncodedToken(t *testing.T) {
	t.Parallel()

	svc, st, ml, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}

	value, err := randomHex(16)
	require.NoError(t, err)
	secret, err := randomHex(16)
	require.NoError(t, err)

	// Токен приехал как сегмент пути с закодированным разделителем: «+» → %2B.
	escaped := value + url.QueryEscape(resetTokenSeparator) + secret
	hash := hashToken(value, secret)

	st.EXPECT().UserByResetHash(gomock.Any(), hash, gomock.Any()).Return(user, nil)
	st.EXPECT().CompletePasswordReset(gomock.Any(), user.ID, gomock.Any()).Return(nil)

	mailSent := make(chan struct{})
	ml.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ mail.Message) error {
			close(mailSent)
			return nil
		})

	require.NoError(t, svc.ResetPassword(context.Background(), escaped, "NewPass1!"))

	select {
	case <-mailSent:
	case <-time.After(2 * time.Second):
		t.Fatal("password-changed notification was not sent")
	}
}

func TestResetPassword_CompleteFails_NoNotification(t *testing.T) {
	t.Parallel()

	svc, st, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}

	value, err := randomHex(16)
	require.NoError(t, err)
	secret, err := randomHex(16)
	require.NoError(t, err)

	dbErr := errors.New("db down")
	st.EXPECT().UserByResetHash(gomock.Any(), hashToken(value, secret), gomock.Any()).Return(user, nil)
	st.EXPECT().CompletePasswordReset(gomock.Any(), user.ID, gomock.Any()).Return(dbErr)

	// Сброс не состоялся: ошибка наружу, письмо «пароль изменён» не уходит
	// (Send не ожидается).
	err = svc.ResetPassword(context.Background(), value+resetTokenSeparator+secret, "NewPass1!")
	require.ErrorIs(t, err, dbErr)
}

func TestResetPassword_MalformedToken(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	for _, tok := range []string{"", "no-separator", "+missing-value", "missing-secret+"} {
		err := svc.ResetPassword(context.Background(), tok, "NewPass1!")
		require.ErrorIs(t, err, ErrInvalidResetToken, "token %q", tok)
	}
}

func TestResetPassword_UnknownOrExpired(t *testing.T) {
	t.Parallel()

	svc, st, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	// «Не найден» и «просрочен» на уровне хранилища — один и тот же ErrNotFound.
	st.EXPECT().UserByResetHash(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound)

	err := svc.ResetPassword(context.Background(), "aaaa+bbbb", "NewPass1!")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_WeakPassword(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	err := svc.ResetPassword(context.Background(), "aaaa+bbbb", "weak")
	require.ErrorIs(t, err, ErrWeakPassword)
}
