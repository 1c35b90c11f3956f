package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnshRaj112/clipstream-backend/internal/models"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore is the production ObjectStore.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, localPath string) (*models.MediaAsset, error) {
	res, err := s.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return nil, errors.New("cloudinary upload: empty response")
	}
	return &models.MediaAsset{PublicID: res.PublicID, URL: res.SecureURL}, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, publicIDs []string) error {
	res, err := s.cld.Admin.DeleteAssets(ctx, admin.DeleteAssetsParams{
		PublicIDs:    publicIDs,
		AssetType:    "image",
		DeliveryType: "upload",
	})
	if err != nil {
		return fmt.Errorf("cloudinary delete: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary delete: %s", res.Error.Message)
	}
	return nil
}
