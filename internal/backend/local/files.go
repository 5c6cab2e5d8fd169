package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"studia/internal/apperr"
	"studia/internal/backend"
)

func (b *Backend) objectPath(bucket, path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if bucket == "" || clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", apperr.Validation("upload", fmt.Sprintf("Invalid object path %q.", path))
	}
	return filepath.Join(b.filesDir, bucket, clean), nil
}

func (b *Backend) Upload(ctx context.Context, bucket, path string, data []byte, opts backend.UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return apperr.Backend("upload", err)
	}
	if b.filesDir == "" {
		return apperr.New(apperr.ErrBackend, "upload", "File storage is not configured.")
	}
	target, err := b.objectPath(bucket, path)
	if err != nil {
		return err
	}

	if !opts.Upsert {
		if _, err := os.Stat(target); err == nil {
			return apperr.New(apperr.ErrBackend, "upload", "The resource already exists.")
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return uploadErr(err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return uploadErr(err)
	}
	b.log.Debugw("object stored", "bucket", bucket, "path", path, "content_type", opts.ContentType, "bytes", len(data))
	return nil
}

func uploadErr(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return apperr.Wrap(apperr.ErrPermission, "upload", err)
	}
	return apperr.Backend("upload", err)
}

// PublicURL points at the stored file; there is no HTTP server in front.
func (b *Backend) PublicURL(bucket, path string) string {
	target, err := b.objectPath(bucket, path)
	if err != nil {
		return ""
	}
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(target)}
	return u.String()
}
