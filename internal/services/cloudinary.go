package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/nikahsufiyana/nikah-backend/internal/models"
)

// MaxPhotoBytes caps a single upload.
const MaxPhotoBytes = 10 << 20

// CloudinaryService stores member photos. Only public IDs are persisted;
// delivery URLs are built per request, after the access check passes.
type CloudinaryService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryService(cloudName, apiKey, apiSecret, folder string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryService{cld: cld, folder: folder}, nil
}

// UploadPhoto stores an image under <folder>/<ownerID>/<category> and returns
// its public ID and secure URL.
func (s *CloudinaryService) UploadPhoto(ctx context.Context, file multipart.File, ownerID string, category models.PhotoCategory) (publicID, secureURL string, err error) {
	data, err := io.ReadAll(io.LimitReader(file, MaxPhotoBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxPhotoBytes {
		return "", "", fmt.Errorf("photo exceeds %d bytes: %w", MaxPhotoBytes, ErrInvalidArgument)
	}

	res, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		Folder:         path.Join(s.folder, ownerID, string(category)),
		ResourceType:   "image",
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary: %s", res.Error.Message)
	}
	return res.PublicID, res.SecureURL, nil
}

// DeliveryURL builds the https URL for a stored public ID.
func (s *CloudinaryService) DeliveryURL(publicID string) (string, error) {
	img, err := s.cld.Image(publicID)
	if err != nil {
		return "", err
	}
	return img.String()
}
