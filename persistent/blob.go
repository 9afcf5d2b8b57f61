package persistent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/buzkaaclicker/persona"
)

var ErrInvalidPath = errors.New("invalid blob path")

// BlobStore writes blobs to Dir/Bucket/<path>. BaseURL is the public prefix
// under which the web server exposes Dir.
type BlobStore struct {
	Dir     string
	BaseURL string
	Bucket  string
}

var _ persona.BlobStore = (*BlobStore)(nil)

func (s *BlobStore) Upload(ctx context.Context, blobPath string, content io.Reader, opts persona.UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return persona.NewError("upload blob", persona.KindTransient, err)
	}
	target, err := s.file(blobPath)
	if err != nil {
		return persona.NewError("upload blob", persona.KindUnknown, err)
	}
	if !opts.Overwrite {
		if _, err := os.Stat(target); err == nil {
			return persona.NewError("upload blob", persona.KindConflict, fmt.Errorf("%s already exists", blobPath))
		}
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return persona.NewError("upload blob", persona.KindUnknown, fmt.Errorf("create dir: %w", err))
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return persona.NewError("upload blob", persona.KindUnknown, fmt.Errorf("create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return persona.NewError("upload blob", persona.KindUnknown, fmt.Errorf("write: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return persona.NewError("upload blob", persona.KindUnknown, fmt.Errorf("close: %w", err))
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return persona.NewError("upload blob", persona.KindUnknown, fmt.Errorf("chmod: %w", err))
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return persona.NewError("upload blob", persona.KindUnknown, fmt.Errorf("rename: %w", err))
	}
	return nil
}

func (s *BlobStore) PublicURL(blobPath string) string {
	segments := strings.Split(blobPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + s.Bucket + "/" + strings.Join(segments, "/")
}

func (s *BlobStore) file(blobPath string) (string, error) {
	clean := path.Clean("/" + blobPath)
	if blobPath == "" || clean == "/" || clean[1:] != blobPath {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, blobPath)
	}
	return filepath.Join(s.Dir, s.Bucket, filepath.FromSlash(blobPath)), nil
}
