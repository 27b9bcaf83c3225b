package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/auth-api/internal/service"
)

type forgotPassRequest struct {
	Email string `json:"email"`
}

type resetPassRequest struct {
	Password string `json:"password"`
}

// ForgotPassword — POST /auth/forgotpass.
//
// Запускает flow сброса пароля: генерирует одноразовый токен и отправляет
// ссылку на почту. Для существующего и несуществующего e-mail ответ
// одинаковый (200), чтобы не раскрывать зарегистрированные адреса.
// Ошибка доставки письма — единственный негативный исход (500).
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPassRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, r)
		return
	}

	err := h.svc.ForgotPassword(r.Context(), req.Email, resetURLBase(r))
	if err != nil && !errors.Is(err, service.ErrInvalidEmail) {
		writeError(w, r, err)
		return
	}

	// Некорректный формат e-mail тоже получает успешную форму ответа:
	// такого адреса заведомо нет среди зарегистрированных.
	writeJSON(w, http.StatusOK, okResponse{
		Success: true,
		Message: "if the email is registered, a reset link has been sent",
	})
}

// ResetPassword — PATCH /auth/resetpass/{resetToken}.
//
// Завершает flow сброса: проверяет токен из пути и устанавливает новый пароль.
// Ответ: 200; 400 — токен не найден или просрочен (неразличимо);
// 422 — новый пароль не проходит политику сложности.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPassRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, r)
		return
	}

	token := chi.URLParam(r, "resetToken")

	if err := h.svc.ResetPassword(r.Context(), token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{
		Success: true,
		Message: "password has been reset",
	})
}
