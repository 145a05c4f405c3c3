// Package storage holds uploaded blobs and renders image previews.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"snapgram/internal/models"
)

// Upload is a file to be stored.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// BlobStore is the blob storage contract used by the gateway.
type BlobStore interface {
	CreateFile(ctx context.Context, upload Upload) (*models.StoredFile, error)
	// GetFile returns the file metadata and its content. Callers close the reader.
	GetFile(ctx context.Context, fileID string) (*models.StoredFile, io.ReadCloser, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// ValidateUpload rejects empty, oversized and non-image uploads.
func ValidateUpload(u Upload, maxBytes int64) error {
	if u.Body == nil || u.Size <= 0 {
		return models.NewValidationError("file is required")
	}
	if maxBytes > 0 && u.Size > maxBytes {
		return models.NewValidationError(fmt.Sprintf("file exceeds the %d MB limit", maxBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(u.ContentType) {
		return models.NewValidationError("unsupported file type " + u.ContentType)
	}
	return nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/svg+xml":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
