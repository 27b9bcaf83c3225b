package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pribylovaa/auth-api/internal/models"
	"github.com/pribylovaa/auth-api/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func applyResetMigration(t *testing.T, st *Storage) {
	t.Helper()
	_, err := st.db.Exec(context.Background(), readMigration(t, "3_init_password_resets.up.sql"))
	require.NoError(t, err, "apply 3_init_password_resets.up.sql")
}

func TestIntegration_UpsertPasswordReset_And_UserByResetHash_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyResetMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("reset-1")

	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(5 * time.Minute),
		CreatedAt: now,
	}))

	got, err := st.UserByResetHash(ctx, hash, now)
	require.NoError(t, err)
	require.Equal(t, userID, got.ID)
	require.Equal(t, "user@example.com", got.Email)
}

func TestIntegration_UpsertPasswordReset_ReplacesPrevious(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyResetMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	first := hashRefresh("reset-old")
	second := hashRefresh("reset-new")

	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID: userID, TokenHash: first, ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
	}))
	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID: userID, TokenHash: second, ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
	}))

	// Старый токен вытеснен: активен только последний запрос.
	_, err := st.UserByResetHash(ctx, first, now)
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err := st.UserByResetHash(ctx, second, now)
	require.NoError(t, err)
	require.Equal(t, userID, got.ID)
}

func TestIntegration_UserByResetHash_StrictExpiry(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyResetMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("reset-expiring")
	expiresAt := now.Add(5 * time.Minute)

	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID: userID, TokenHash: hash, ExpiresAt: expiresAt, CreatedAt: now,
	}))

	// До истечения — найден.
	_, err := st.UserByResetHash(ctx, hash, expiresAt.Add(-time.Second))
	require.NoError(t, err)

	// Ровно в момент истечения — уже нет (сравнение строгое).
	_, err = st.UserByResetHash(ctx, hash, expiresAt)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_CompletePasswordReset_Atomic(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyResetMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("reset-complete")

	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID: userID, TokenHash: hash, ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
	}))

	require.NoError(t, st.CompletePasswordReset(ctx, userID, "new-hash"))

	// Пароль сменён и запрос снят одним вызовом: токен одноразовый.
	got, err := st.UserByID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)

	_, err = st.UserByResetHash(ctx, hash, now)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_CompletePasswordReset_UnknownUser(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyResetMigration(t, st)

	err := st.CompletePasswordReset(context.Background(), uuid.New(), "new-hash")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_DeletePasswordReset_Idempotent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyResetMigration(t, st)

	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	now := time.Now().UTC()
	hash := hashRefresh("reset-del")

	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID: userID, TokenHash: hash, ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
	}))

	require.NoError(t, st.DeletePasswordReset(ctx, userID))

	_, err := st.UserByResetHash(ctx, hash, now)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Повторное удаление и удаление несуществующего — no-op.
	require.NoError(t, st.DeletePasswordReset(ctx, userID))
	require.NoError(t, st.DeletePasswordReset(ctx, uuid.New()))
}

func TestIntegration_DeleteExpiredResets(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()
	applyResetMigration(t, st)

	ctx := context.Background()
	liveID := seedUser(t, st, "live@example.com")
	deadID := seedUser(t, st, "dead@example.com")

	now := time.Now().UTC()
	liveHash := hashRefresh("reset-live")
	deadHash := hashRefresh("reset-dead")

	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID: liveID, TokenHash: liveHash, ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
	}))
	require.NoError(t, st.UpsertPasswordReset(ctx, &models.PasswordReset{
		UserID: deadID, TokenHash: deadHash, ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-10 * time.Minute),
	}))

	require.NoError(t, st.DeleteExpiredResets(ctx, now))

	_, err := st.UserByResetHash(ctx, liveHash, now)
	require.NoError(t, err)

	_, err = st.UserByResetHash(ctx, deadHash, now.Add(-2*time.Minute))
	require.ErrorIs(t, err, storage.ErrNotFound)
}
