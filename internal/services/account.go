package services

import (
	"context"
	"errors"
	"strings"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/internal/store"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/AnshRaj112/clipstream-backend/pkg/logger"
	"github.com/AnshRaj112/clipstream-backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// AccountService covers everything an identity does after sign-up.
type AccountService struct {
	users  store.UserStore
	tokens *TokenService
	media  *MediaService
	log    logrus.FieldLogger
}

func NewAccountService(users store.UserStore, tokens *TokenService, media *MediaService, log logrus.FieldLogger) *AccountService {
	return &AccountService{users: users, tokens: tokens, media: media, log: logger.OrDefault(log)}
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

func (s *AccountService) Login(ctx context.Context, in LoginInput) (*models.User, *TokenPair, error) {
	username := utils.NormalizeUsername(in.Username)
	email := utils.NormalizeEmail(in.Email)
	if username == "" && email == "" {
		return nil, nil, apperr.Validation("username or email is required",
			apperr.Detail{Field: "username", Message: "username or email is required"})
	}
	if in.Password == "" {
		return nil, nil, apperr.Validation("password is required",
			apperr.Detail{Field: "password", Message: "password is required"})
	}

	u, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}

	ok, err := utils.VerifyPassword(in.Password, u.Password)
	if err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("stored password hash is unreadable")
		return nil, nil, apperr.ErrInvalidCredentials
	}
	if !ok {
		return nil, nil, apperr.ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u.Public(), pair, nil
}

// StartSession issues the first token pair for an identity that was just
// registered.
func (s *AccountService) StartSession(ctx context.Context, u *models.User) (*TokenPair, error) {
	return s.tokens.Issue(ctx, u)
}

func (s *AccountService) Logout(ctx context.Context, id string) error {
	return s.tokens.Revoke(ctx, id)
}

func (s *AccountService) Refresh(ctx context.Context, presented string) (*models.User, *TokenPair, error) {
	pair, u, err := s.tokens.Rotate(ctx, presented)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// ChangePassword replaces the hash and ends the current session.
func (s *AccountService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if missing := utils.RequireFields(
		utils.Field{Name: "oldPassword", Value: oldPassword},
		utils.Field{Name: "newPassword", Value: newPassword},
	); len(missing) > 0 {
		return apperr.Validation("Old and new password are required", missing...)
	}

	u, err := s.users.FindByIDWithSecrets(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrUnauthorized
	}
	if err != nil {
		return apperr.Internal(err)
	}

	ok, err := utils.VerifyPassword(oldPassword, u.Password)
	if err != nil || !ok {
		return apperr.New(apperr.KindInvalidCredentials, "Invalid old password")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return apperr.Internal(err)
	}
	return s.tokens.Revoke(ctx, id)
}

func (s *AccountService) CurrentUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *AccountService) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.User, error) {
	if missing := utils.RequireFields(
		utils.Field{Name: "fullName", Value: fullName},
		utils.Field{Name: "email", Value: email},
	); len(missing) > 0 {
		return nil, apperr.Validation("All fields are required", missing...)
	}

	u, err := s.users.UpdateDetails(ctx, id, strings.TrimSpace(fullName), utils.NormalizeEmail(email))
	return u, storeErr(err)
}

// UpdateAvatar uploads the replacement first, then points the identity at it
// and only then removes the previous asset.
func (s *AccountService) UpdateAvatar(ctx context.Context, id, localPath string) (*models.User, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, apperr.Validation("Avatar file is missing",
			apperr.Detail{Field: "avatar", Message: "avatar is required"})
	}

	current, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	asset, err := s.media.Upload(ctx, localPath)
	if err != nil {
		return nil, err
	}

	u, err := s.users.UpdateAvatar(ctx, id, *asset)
	if err != nil {
		s.media.Delete(context.WithoutCancel(ctx), asset.PublicID)
		return nil, storeErr(err)
	}

	s.media.Delete(ctx, assetID(&current.Avatar))
	return u, nil
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, id, localPath string) (*models.User, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, apperr.Validation("Cover image file is missing",
			apperr.Detail{Field: "coverImage", Message: "coverImage is required"})
	}

	current, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	asset, err := s.media.Upload(ctx, localPath)
	if err != nil {
		return nil, err
	}

	u, err := s.users.UpdateCoverImage(ctx, id, asset)
	if err != nil {
		s.media.Delete(context.WithoutCancel(ctx), asset.PublicID)
		return nil, storeErr(err)
	}

	s.media.Delete(ctx, assetID(current.CoverImage))
	return u, nil
}

// RemoveCoverImage clears the slot. A failed remote delete is logged by the
// media service and does not fail the request.
func (s *AccountService) RemoveCoverImage(ctx context.Context, id string) (*models.User, error) {
	current, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}

	u, err := s.users.UpdateCoverImage(ctx, id, nil)
	if err != nil {
		return nil, storeErr(err)
	}

	s.media.Delete(ctx, assetID(current.CoverImage))
	return u, nil
}

func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.New(apperr.KindNotFound, "User not found")
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict("Email already in use")
	default:
		return apperr.Internal(err)
	}
}
