package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/auth-api/internal/service"
	"github.com/pribylovaa/auth-api/internal/transport/http/middleware"
)

// errNoIdentity — в контексте нет аутентифицированного пользователя,
// хотя маршрут закрыт Bearer-мидлваром. Маппится на 401 "token_error".
var errNoIdentity = errors.New("no authenticated identity in context")

// apiError — тело ошибки в едином конверте {"error": {...}}.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// writeError маппит ошибку сервисного слоя на HTTP-статус и машинный код
// и пишет единый конверт ошибки. Для 401 код служит причиной отказа
// ("no_rft", "token_error", "expired", "not_recognized").
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := fromService(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: apiError{
		Code:      code,
		Message:   msg,
		RequestID: middleware.RequestIDFrom(r.Context()),
	}})
}

// writeBadBody — ответ на синтаксически некорректное тело запроса.
func writeBadBody(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)

	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: apiError{
		Code:      "bad_request",
		Message:   "malformed request body",
		RequestID: middleware.RequestIDFrom(r.Context()),
	}})
}

func fromService(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, service.ErrNoRefreshToken):
		return http.StatusUnauthorized, "no_rft", "refresh token is missing"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "expired", "token has expired"
	case errors.Is(err, service.ErrTokenNotRecognized):
		return http.StatusUnauthorized, "not_recognized", "token is not recognized"
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, errNoIdentity):
		return http.StatusUnauthorized, "token_error", "token is invalid"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "email_taken", "email is already taken"
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrEmptyName):
		return http.StatusUnprocessableEntity, "validation_error", lastMessage(err)
	case errors.Is(err, service.ErrInvalidResetToken):
		return http.StatusBadRequest, "invalid_reset_token", "reset link is invalid or has expired"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// lastMessage достаёт сообщение сентинельной ошибки без цепочки "op:" префиксов.
func lastMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
