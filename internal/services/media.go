package services

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
	"github.com/AnshRaj112/clipstream-backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ObjectStore is the remote media backend.
type ObjectStore interface {
	Upload(ctx context.Context, localPath string) (*models.MediaAsset, error)
	Delete(ctx context.Context, publicIDs []string) error
}

// MediaService moves locally staged files to the ObjectStore and removes
// assets best-effort.
type MediaService struct {
	store ObjectStore
	log   logrus.FieldLogger
}

func NewMediaService(store ObjectStore, log logrus.FieldLogger) *MediaService {
	return &MediaService{store: store, log: logger.OrDefault(log)}
}

// Upload sends localPath to the object store. The local file is removed
// before Upload returns, whatever the outcome.
func (m *MediaService) Upload(ctx context.Context, localPath string) (*models.MediaAsset, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, apperr.ErrEmptyPath
	}
	defer m.removeLocal(localPath)

	asset, err := m.store.Upload(ctx, localPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUploadFailure, "Error while uploading file", err)
	}
	return asset, nil
}

func (m *MediaService) removeLocal(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.WithError(err).WithField("path", path).Warn("failed to remove temp upload")
	}
}

// Delete removes assets by public id. It never fails the caller; false means
// the store reported an error, which has already been logged.
func (m *MediaService) Delete(ctx context.Context, publicIDs ...string) bool {
	ids := make([]string, 0, len(publicIDs))
	for _, id := range publicIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return true
	}

	if err := m.store.Delete(ctx, ids); err != nil {
		m.log.WithError(err).WithField("public_ids", ids).Error("media cleanup failed")
		return false
	}
	return true
}

// PublicIDFromURL derives an asset id from its delivery URL: the last path
// segment up to its first '.'. Only used when a stored asset lacks its id.
func PublicIDFromURL(url string) string {
	if url == "" {
		return ""
	}
	name := url
	if i := strings.LastIndex(url, "/"); i >= 0 {
		name = url[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}

// assetID returns the id to delete for a stored asset.
func assetID(a *models.MediaAsset) string {
	if a == nil {
		return ""
	}
	if a.PublicID != "" {
		return a.PublicID
	}
	return PublicIDFromURL(a.URL)
}
