package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// TokenValidator проверяет access-токен и возвращает идентификатор
// и email пользователя. Реализуется сервисным слоем.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (uuid.UUID, string, error)
}

// AuthBearer требует заголовок Authorization: Bearer <access>,
// валидирует токен и кладёт uuid пользователя в контекст (CtxUserID).
// Любая ошибка токена — единый ответ 401 без деталей.
func AuthBearer(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))

			const prefix = "Bearer "
			if raw == "" || !strings.HasPrefix(raw, prefix) {
				unauthorized(w, r)
				return
			}

			uid, _, err := v.ValidateToken(r.Context(), strings.TrimSpace(raw[len(prefix):]))
			if err != nil {
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom возвращает uuid пользователя из контекста.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	uid, ok := ctx.Value(CtxUserID).(uuid.UUID)
	return uid, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="auth-api"`)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)

	rid := RequestIDFrom(r.Context())
	_, _ = w.Write([]byte(`{"error":{"code":"token_error","message":"authentication required","request_id":"` + rid + `"}}`))
}
