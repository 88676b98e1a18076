package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

// Uploader stores a file and returns a reference clients can put into
// screenshot and image fields.
type Uploader interface {
	Upload(ctx context.Context, folder, name string, r io.Reader) (string, error)
}

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Image reads at most maxBytes from r and checks that the content is one of
// the accepted image types. It returns the buffered content and its type.
func Image(r io.Reader, maxBytes int64) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("storage: failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: file is empty", apperror.ErrValidation)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", apperror.ErrValidation, maxBytes)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, "", fmt.Errorf("%w: unsupported file type %s", apperror.ErrValidation, mt.String())
	}
	return data, mt.String(), nil
}

type cloudinaryUploader struct {
	cld  *cloudinary.Cloudinary
	root string
}

func NewCloudinary(cloudName, apiKey, apiSecret, root string) (Uploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to init cloudinary: %w", err)
	}
	return &cloudinaryUploader{cld: cld, root: root}, nil
}

func (c *cloudinaryUploader) Upload(ctx context.Context, folder, name string, r io.Reader) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       strings.Trim(c.root+"/"+folder, "/"),
		PublicID:     name,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("storage: upload rejected: %s", res.Error.Message)
	}
	log.Info().Str("public_id", res.PublicID).Msg("storage: file uploaded")
	return res.SecureURL, nil
}
