package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout ограничивает обработку запроса дедлайном контекста.
// Сами обработчики обязаны уважать ctx.Done().
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
