package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dmorgan81/editproxy/internal/log"
)

type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

type FileUploader struct {
	Dir string
}

func (u *FileUploader) Upload(ctx context.Context, params UploadParams) error {
	path := filepath.Join(u.Dir, filepath.FromSlash(params.Name))
	log.FromContextOrDiscard(ctx).WithGroup("file").Info("writing", "file", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, params.Data, 0o600)
}

// Discard is used when no archive is configured.
type Discard struct{}

func (Discard) Upload(context.Context, UploadParams) error {
	return nil
}
