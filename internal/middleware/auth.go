package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/clipstream-backend/internal/httputil"
	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/internal/store"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/AnshRaj112/clipstream-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

const AccessTokenCookie = "accessToken"

type ctxKey int

const userKey ctxKey = iota

// AccessVerifier resolves an access token to an identity id.
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

type Authenticator struct {
	tokens AccessVerifier
	users  store.UserStore
	log    logrus.FieldLogger
}

func NewAuthenticator(tokens AccessVerifier, users store.UserStore, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: logger.OrDefault(log)}
}

// Handler rejects requests without a valid access token. On success the
// public identity is available through UserFromContext.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := AccessTokenFromRequest(r)
		if token == "" {
			httputil.WriteError(w, r, a.log, apperr.Unauthorized("Unauthorized request"))
			return
		}

		id, err := a.tokens.VerifyAccess(token)
		if err != nil {
			reason := err.Error()
			if e, ok := apperr.As(err); ok {
				reason = e.Message
			}
			httputil.WriteError(w, r, a.log, apperr.Unauthorized("Invalid access token").
				WithDetails(apperr.Detail{Field: "accessToken", Message: reason}))
			return
		}

		u, err := a.users.FindByID(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteError(w, r, a.log, apperr.Unauthorized("Invalid access token"))
			return
		}
		if err != nil {
			httputil.WriteError(w, r, a.log, apperr.Internal(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u.Public())))
	})
}

// AccessTokenFromRequest reads the access token cookie, falling back to an
// Authorization: Bearer header.
func AccessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return BearerToken(r)
}

func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}
