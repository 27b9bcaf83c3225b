package middleware

import (
	"net/http"
)

// Middleware — стандартный net/http мидлвар; в таком виде конструкторы
// пакета регистрируются напрямую через chi Router.Use.
type Middleware func(http.Handler) http.Handler

// ctxKey — приватный тип ключей контекста пакета.
type ctxKey string

const (
	// CtxRequestID — ключ, по которому в контексте лежит X-Request-Id.
	CtxRequestID ctxKey = "request_id"
	// CtxUserID — ключ, по которому в контексте лежит uuid.UUID
	// аутентифицированного пользователя (кладёт AuthBearer).
	CtxUserID ctxKey = "user_id"
)

// statusWriter оборачивает ResponseWriter, чтобы перехватить статус и размер.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	count, err := w.ResponseWriter.Write(p)
	w.count += count
	return count, err
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}
