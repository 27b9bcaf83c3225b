// handlers реализует HTTP-обработчики auth-api поверх сервисного слоя:
// регистрацию и вход, обновление access-токена, отзыв сессий и flow
// сброса пароля. Refresh-токен передаётся клиенту только в httpOnly-cookie,
// access-токен — только в теле ответа.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pribylovaa/auth-api/internal/config"
	"github.com/pribylovaa/auth-api/internal/models"
	"github.com/pribylovaa/auth-api/internal/service"
)

// Handlers агрегирует зависимости HTTP-обработчиков.
type Handlers struct {
	svc     *service.Service
	authCfg config.AuthConfig
}

// New создаёт набор обработчиков.
func New(svc *service.Service, authCfg config.AuthConfig) *Handlers {
	return &Handlers{svc: svc, authCfg: authCfg}
}

// userProfile — представление пользователя в ответах API.
type userProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func toProfile(u *models.User) userProfile {
	return userProfile{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON строго разбирает тело запроса: неизвестные поля — ошибка.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// setRefreshCookie кладёт refresh-токен в httpOnly-cookie.
// SameSite=None + Secure: SPA и API живут на разных origin.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.authCfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authCfg.CookieTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearRefreshCookie затирает refresh-cookie истекшим значением.
func (h *Handlers) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.authCfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// refreshTokenFromCookie возвращает refresh-токен из cookie (или пустую строку).
func (h *Handlers) refreshTokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(h.authCfg.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// resetURLBase определяет базу ссылки сброса пароля:
// явный заголовок X-Reset-Base, иначе Origin запроса.
func resetURLBase(r *http.Request) string {
	if base := r.Header.Get("X-Reset-Base"); base != "" {
		if u, err := url.Parse(base); err == nil && u.Scheme != "" && u.Host != "" {
			return base
		}
	}

	if origin := r.Header.Get("Origin"); origin != "" {
		return origin + "/resetpass"
	}

	// Относительная ссылка: клиент достроит её от своего origin.
	return "/resetpass"
}
