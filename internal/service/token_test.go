package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	token, err := svc.generateAccessToken(context.Background(), uid, "user@example.com", time.Now().UTC())
	require.NoError(t, err)

	gotUID, gotEmail, err := svc.validateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, uid, gotUID)
	require.Equal(t, "user@example.com", gotEmail)
}

func TestAccessToken_Expired(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	// TTL 30s + leeway 5s: выпуск минуту назад гарантированно просрочен.
	token, err := svc.generateAccessToken(context.Background(), uuid.New(), "u@e.com", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	_, _, err = svc.validateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessToken_Tampered(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	token, err := svc.generateAccessToken(context.Background(), uuid.New(), "u@e.com", time.Now().UTC())
	require.NoError(t, err)

	_, _, err = svc.validateAccessToken(token + "x")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	uid := uuid.New()
	token, err := svc.generateRefreshToken(context.Background(), uid, time.Now().UTC())
	require.NoError(t, err)

	gotUID, err := svc.validateRefreshToken(token)
	require.NoError(t, err)
	require.Equal(t, uid, gotUID)
}

func TestRefreshToken_AccessSecretRejected(t *testing.T) {
	t.Parallel()

	svc, _, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Access-токен не проходит как refresh: подписи на разных секретах.
	token, err := svc.generateAccessToken(context.Background(), uuid.New(), "u@e.com", time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.validateRefreshToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashToken_DeterministicAndKeyed(t *testing.T) {
	t.Parallel()

	h1 := hashToken("raw-token", "secret-a")
	h2 := hashToken("raw-token", "secret-a")
	h3 := hashToken("raw-token", "secret-b")

	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	// HMAC-SHA256 в hex — всегда 64 символа.
	require.Len(t, h1, 64)
}

func TestRandomHex(t *testing.T) {
	t.Parallel()

	a, err := randomHex(16)
	require.NoError(t, err)
	require.Len(t, a, 32)

	b, err := randomHex(16)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
