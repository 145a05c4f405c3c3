package gateway

import (
	"context"

	"snapgram/internal/models"
	"snapgram/internal/storage"
)

// UploadFile stores an image upload.
func (g *Gateway) UploadFile(ctx context.Context, u storage.Upload) (*models.StoredFile, error) {
	return call(ctx, g, "upload_file", map[string]interface{}{"name": u.Name, "size": u.Size}, func(ctx context.Context) (*models.StoredFile, error) {
		return g.uploadFile(ctx, u)
	})
}

func (g *Gateway) uploadFile(ctx context.Context, u storage.Upload) (*models.StoredFile, error) {
	if err := storage.ValidateUpload(u, g.p.MaxUploadBytes); err != nil {
		return nil, err
	}
	return g.p.Files.CreateFile(ctx, u)
}

// GetFilePreview returns the standard preview URL for a stored file.
func (g *Gateway) GetFilePreview(ctx context.Context, fileID string) (string, error) {
	return call(ctx, g, "get_file_preview", map[string]interface{}{"file_id": fileID}, func(context.Context) (string, error) {
		return g.filePreview(fileID)
	})
}

func (g *Gateway) filePreview(fileID string) (string, error) {
	if fileID == "" {
		return "", models.NewValidationError("file id is required")
	}
	return storage.PreviewURL(g.p.PublicURL, fileID, storage.DefaultPreview), nil
}

// RenderFilePreview loads a stored image and renders it with opts.
func (g *Gateway) RenderFilePreview(ctx context.Context, fileID string, opts storage.PreviewOptions) ([]byte, string, error) {
	type rendered struct {
		body        []byte
		contentType string
	}
	out, err := call(ctx, g, "render_file_preview", map[string]interface{}{"file_id": fileID}, func(ctx context.Context) (rendered, error) {
		_, rc, err := g.p.Files.GetFile(ctx, fileID)
		if err != nil {
			return rendered{}, err
		}
		defer rc.Close()
		body, ct, err := storage.RenderPreview(rc, opts)
		return rendered{body: body, contentType: ct}, err
	})
	return out.body, out.contentType, err
}

// DeleteFile removes a stored file.
func (g *Gateway) DeleteFile(ctx context.Context, fileID string) error {
	return exec(ctx, g, "delete_file", map[string]interface{}{"file_id": fileID}, func(ctx context.Context) error {
		if fileID == "" {
			return models.NewValidationError("file id is required")
		}
		return g.p.Files.DeleteFile(ctx, fileID)
	})
}
