package handlers

import (
	"net/http"
	"time"

	"github.com/iudanet/vulntracker/internal/server/session"
)

const (
	// AccessCookieName cookie с JWT access token
	AccessCookieName = "accessToken"
	// RefreshCookieName cookie с refresh token
	RefreshCookieName = "refreshToken"
)

// Cookies выставляет и очищает cookie с учетными данными.
// Обе cookie HttpOnly и SameSite=Lax; Secure включается в production.
type Cookies struct {
	Secure bool
}

// SetTokens записывает access cookie и, если он выдан, refresh cookie
func (c Cookies) SetTokens(w http.ResponseWriter, tokens *session.Tokens, now time.Time) {
	http.SetCookie(w, c.cookie(AccessCookieName, tokens.AccessToken, tokens.AccessExpiresAt, now))
	if tokens.RefreshToken != "" {
		http.SetCookie(w, c.cookie(RefreshCookieName, tokens.RefreshToken, tokens.RefreshExpiresAt, now))
	}
}

// Clear удаляет обе cookie (Max-Age=0)
func (c Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (c Cookies) cookie(name, value string, expiresAt, now time.Time) *http.Cookie {
	maxAge := int(expiresAt.Sub(now).Seconds())
	if maxAge <= 0 {
		// MaxAge 0 означает "без Max-Age", а не удаление
		maxAge = 1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// RefreshCookie возвращает значение refresh cookie или пустую строку
func RefreshCookie(r *http.Request) string {
	return cookieValue(r, RefreshCookieName)
}

// AccessCookie возвращает значение access cookie или пустую строку
func AccessCookie(r *http.Request) string {
	return cookieValue(r, AccessCookieName)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
