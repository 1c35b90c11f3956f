package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/internal/store"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPair is what a successful login, registration or refresh hands back.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

// AccessClaims carries the profile fields clients read without a round trip.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// TokenService signs, verifies and rotates the access/refresh pair. The store
// holds one refresh token per identity, so a new pair invalidates the old one.
type TokenService struct {
	cfg   TokenConfig
	users store.UserStore
	now   func() time.Time
}

func NewTokenService(cfg TokenConfig, users store.UserStore) *TokenService {
	return &TokenService{cfg: cfg, users: users, now: time.Now}
}

func (s *TokenService) sign(secret string, ttl time.Duration, claims *AccessClaims) (string, error) {
	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Issue signs a fresh pair for u and stores the refresh token, replacing any
// previous one.
func (s *TokenService) Issue(ctx context.Context, u *models.User) (*TokenPair, error) {
	access, err := s.sign(s.cfg.AccessSecret, s.cfg.AccessTTL, &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
		Username:         u.Username,
		Email:            u.Email,
		FullName:         u.FullName,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := s.sign(s.cfg.RefreshSecret, s.cfg.RefreshTTL, &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: u.ID},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.users.SetRefreshToken(ctx, u.ID, refresh); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Something went wrong while generating refresh and access token", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  s.cfg.AccessTTL,
		RefreshExpiresIn: s.cfg.RefreshTTL,
	}, nil
}

func (s *TokenService) parse(token, secret string) (string, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", err
	}
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenMalformed
	}
	return claims.Subject, nil
}

// VerifyAccess returns the identity id carried by an access token.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	id, err := s.parse(token, s.cfg.AccessSecret)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", apperr.New(apperr.KindTokenExpired, "Access token expired")
	}
	if err != nil {
		return "", apperr.New(apperr.KindTokenInvalid, "Invalid access token")
	}
	return id, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token must
// match the one stored for its identity; otherwise it was already rotated or
// revoked.
func (s *TokenService) Rotate(ctx context.Context, presented string) (*TokenPair, *models.User, error) {
	if presented == "" {
		return nil, nil, apperr.Unauthorized("Unauthorized request")
	}

	id, err := s.parse(presented, s.cfg.RefreshSecret)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, nil, apperr.ErrTokenExpired
	}
	if err != nil {
		return nil, nil, apperr.ErrTokenInvalid
	}

	u, err := s.users.FindByIDWithSecrets(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.ErrTokenInvalid
	}
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}

	if u.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(presented)) != 1 {
		return nil, nil, apperr.ErrTokenMismatch
	}

	pair, err := s.Issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return pair, u.Public(), nil
}

// Revoke clears the stored refresh token. Unknown identities are ignored.
func (s *TokenService) Revoke(ctx context.Context, id string) error {
	err := s.users.ClearRefreshToken(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Internal(err)
	}
	return nil
}
