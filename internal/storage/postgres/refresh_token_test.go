package postgres

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/pribylovaa/auth-api/internal/models"

	"github.com/stretchr/testify/require"
)

func applyRefreshMigration(t *testing.T, st *Storage) {
	t.Helper()
	_, err := st.db.Exec(context.Background(), readMigration(t, "2_init_refresh_tokens.up.sql"))
	require.NoError(t, err, "apply 2_init_refresh_tokens.up.sql")
}

// hashRefresh — helper для вычисления дайджеста из plain (HMAC-SHA256 → hex).
func hashRefresh(plain string) string {
	mac := hmac.New(sha256.New, []byte("it-refresh-secret"))
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestIntegration_SaveRefreshToken_And_Has_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyRefreshMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("plain-refresh-1")

	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	active, err := st.HasRefreshToken(ctx, userID, hash)
	require.NoError(t, err)
	require.True(t, active)

	// Чужой пользователь тот же дайджест не видит.
	otherID := seedUser(t, st, "other@example.com")
	active, err = st.HasRefreshToken(ctx, otherID, hash)
	require.NoError(t, err)
	require.False(t, active)
}

func TestIntegration_SaveRefreshToken_DuplicateAbsorbed(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyRefreshMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("dup-refresh")

	rt := &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	require.NoError(t, st.SaveRefreshToken(ctx, rt))

	// Повтор с тем же token_hash поглощается без ошибки.
	require.NoError(t, st.SaveRefreshToken(ctx, rt))
}

func TestIntegration_HasRefreshToken_ExpiredNotActive(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyRefreshMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("expired-refresh")

	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	// Даже до фоновой очистки просроченный дайджест не активен.
	active, err := st.HasRefreshToken(ctx, userID, hash)
	require.NoError(t, err)
	require.False(t, active)
}

func TestIntegration_DeleteRefreshToken_Idempotent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyRefreshMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("to-delete")

	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, st.DeleteRefreshToken(ctx, userID, hash))

	active, err := st.HasRefreshToken(ctx, userID, hash)
	require.NoError(t, err)
	require.False(t, active)

	// Повторное удаление — no-op.
	require.NoError(t, st.DeleteRefreshToken(ctx, userID, hash))
}

func TestIntegration_DeleteAllRefreshTokens_OnlyOwn(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyRefreshMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")
	otherID := seedUser(t, st, "other@example.com")

	now := time.Now().UTC()
	hashes := []string{hashRefresh("dev-1"), hashRefresh("dev-2")}
	for _, h := range hashes {
		require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{
			TokenHash: h,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))
	}

	otherHash := hashRefresh("other-dev")
	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: otherHash,
		UserID:    otherID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, st.DeleteAllRefreshTokens(ctx, userID))

	for _, h := range hashes {
		active, err := st.HasRefreshToken(ctx, userID, h)
		require.NoError(t, err)
		require.False(t, active)
	}

	// Коллекция другого пользователя не затронута.
	active, err := st.HasRefreshToken(ctx, otherID, otherHash)
	require.NoError(t, err)
	require.True(t, active)
}

func TestIntegration_DeleteExpiredTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyRefreshMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	liveHash := hashRefresh("live")
	deadHash := hashRefresh("dead")

	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: liveHash, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, st.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: deadHash, UserID: userID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	require.NoError(t, st.DeleteExpiredTokens(ctx, now))

	active, err := st.HasRefreshToken(ctx, userID, liveHash)
	require.NoError(t, err)
	require.True(t, active)
}
