package handlers

import (
	"net/http"

	"github.com/pribylovaa/auth-api/internal/transport/http/middleware"
)

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success     bool        `json:"success"`
	User        userProfile `json:"user"`
	AccessToken string      `json:"accessToken"`
}

type accessResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

type okResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Signup — POST /auth/signup.
//
// Регистрирует пользователя, сразу выдаёт пару токенов:
// access — в теле ответа, refresh — в httpOnly-cookie.
// Ответ: 201; 409 — e-mail занят; 422 — ошибка валидации.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, r)
		return
	}

	pair, user, err := h.svc.RegisterUser(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusCreated, authResponse{
		Success:     true,
		User:        toProfile(user),
		AccessToken: pair.AccessToken,
	})
}

// Login — POST /auth/login.
//
// Проверяет учётные данные и выдаёт пару токенов так же, как Signup.
// Ответ: 200; 401 — неверные учётные данные (без уточнения причины).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, r)
		return
	}

	pair, user, err := h.svc.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{
		Success:     true,
		User:        toProfile(user),
		AccessToken: pair.AccessToken,
	})
}

// Refresh — POST /auth/refresh.
//
// Обменивает refresh-токен из cookie на новый access-токен.
// Refresh-токен при обмене не ротируется и остаётся в cookie клиента.
// Ответ: 201; 401 с машинной причиной ("no_rft", "token_error",
// "expired", "not_recognized").
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFromCookie(r)

	access, _, err := h.svc.RefreshToken(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusCreated, accessResponse{
		Success:     true,
		AccessToken: access.Token,
	})
}

// Logout — POST /auth/logout (требует Bearer access-токен).
//
// Отзывает refresh-токен текущего устройства и затирает cookie.
// Операция идемпотентна: уже отозванный токен не считается ошибкой.
// Ответ: 205.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		writeError(w, r, errNoIdentity)
		return
	}

	if err := h.svc.Logout(r.Context(), uid, h.refreshTokenFromCookie(r)); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusResetContent, okResponse{Success: true, Message: "logged out"})
}

// LogoutAll — POST /auth/logout-all (требует Bearer access-токен).
//
// Отзывает все refresh-токены пользователя (выход со всех устройств)
// и затирает cookie текущего. Ответ: 205.
func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		writeError(w, r, errNoIdentity)
		return
	}

	if err := h.svc.LogoutAll(r.Context(), uid); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusResetContent, okResponse{Success: true, Message: "logged out everywhere"})
}
