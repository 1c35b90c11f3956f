package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/clipstream-backend/internal/middleware"
	"github.com/AnshRaj112/clipstream-backend/internal/services"
)

const refreshTokenCookie = "refreshToken"

// Cookies writes the session cookie pair. Each cookie lives as long as the
// token it carries.
type Cookies struct {
	Secure bool
}

func (c Cookies) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c Cookies) set(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, c.cookie(middleware.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresIn))
	http.SetCookie(w, c.cookie(refreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresIn))
}

func (c Cookies) clear(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}
