package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// RequestID берёт X-Request-Id из запроса (или генерирует новый),
// кладёт его в контекст и дублирует в заголовок ответа.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get(headerRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), CtxRequestID, rid)
			w.Header().Set(headerRequestID, rid)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFrom возвращает request id из контекста (или пустую строку).
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(CtxRequestID).(string)
	return rid
}
