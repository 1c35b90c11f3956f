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

// RegisterInput is a sign-up request with its files already staged on disk.
// CoverImagePath is optional.
type RegisterInput struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// RegistrationService creates identities. Steps run strictly in order:
// validate, check uniqueness, require the avatar, hash, upload avatar, upload
// cover, persist. Any failure after the first upload deletes what this attempt uploaded.
type RegistrationService struct {
	users store.UserStore
	media *MediaService
	log   logrus.FieldLogger

	hashPassword func(string) (string, error)
}

func NewRegistrationService(users store.UserStore, media *MediaService, log logrus.FieldLogger) *RegistrationService {
	return &RegistrationService{
		users:        users,
		media:        media,
		log:          logger.OrDefault(log),
		hashPassword: utils.HashPassword,
	}
}

func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if missing := utils.RequireFields(
		utils.Field{Name: "username", Value: in.Username},
		utils.Field{Name: "fullName", Value: in.FullName},
		utils.Field{Name: "email", Value: in.Email},
		utils.Field{Name: "password", Value: in.Password},
	); len(missing) > 0 {
		return nil, apperr.Validation("All fields are required", missing...)
	}

	username := utils.NormalizeUsername(in.Username)
	email := utils.NormalizeEmail(in.Email)
	log := s.log.WithField("username", username)

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailure, apperr.ErrPersistenceFailure.Message, err)
	}
	if exists {
		return nil, apperr.Conflict("User with email or username already exists")
	}

	if strings.TrimSpace(in.AvatarPath) == "" {
		return nil, apperr.Validation("Avatar file is required",
			apperr.Detail{Field: "avatar", Message: "avatar is required"})
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	avatar, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		return nil, err
	}
	uploaded := []string{avatar.PublicID}

	var cover *models.MediaAsset
	if strings.TrimSpace(in.CoverImagePath) != "" {
		cover, err = s.media.Upload(ctx, in.CoverImagePath)
		if err != nil {
			return nil, s.compensate(ctx, log, uploaded, err)
		}
		uploaded = append(uploaded, cover.PublicID)
	}

	id, err := s.users.Create(ctx, &models.User{
		Username:   username,
		Email:      email,
		FullName:   strings.TrimSpace(in.FullName),
		Password:   hash,
		Avatar:     *avatar,
		CoverImage: cover,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, s.compensate(ctx, log, uploaded, apperr.Conflict("User with email or username already exists"))
	}
	if err != nil {
		return nil, s.compensate(ctx, log, uploaded,
			apperr.Wrap(apperr.KindPersistenceFailure, apperr.ErrPersistenceFailure.Message, err))
	}

	created, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.compensate(ctx, log, uploaded,
			apperr.Wrap(apperr.KindPersistenceFailure, apperr.ErrPersistenceFailure.Message, err))
	}

	log.WithField("user_id", id).Info("user registered")
	return created.Public(), nil
}

// compensate deletes the assets uploaded in this attempt and returns cause,
// annotated when the cleanup itself failed. The status never changes.
func (s *RegistrationService) compensate(ctx context.Context, log logrus.FieldLogger, uploaded []string, cause error) error {
	log.WithError(cause).WithField("public_ids", uploaded).Warn("registration failed, removing uploaded media")

	// the request may already be cancelled; cleanup still has to run
	if s.media.Delete(context.WithoutCancel(ctx), uploaded...) {
		return cause
	}

	e, ok := apperr.As(cause)
	if !ok {
		e = apperr.Internal(cause)
	}
	return e.WithDetails(apperr.Detail{Field: "media", Message: apperr.ErrCompensationFailure.Message})
}
