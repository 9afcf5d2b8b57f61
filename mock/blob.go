package mock

import (
	"context"
	"io"

	"github.com/buzkaaclicker/persona"
)

type BlobStore struct {
	UploadFn func(ctx context.Context, path string, content io.Reader, opts persona.UploadOptions) error

	PublicURLFn func(path string) string
}

func (s BlobStore) Upload(ctx context.Context, path string, content io.Reader, opts persona.UploadOptions) error {
	return s.UploadFn(ctx, path, content, opts)
}

func (s BlobStore) PublicURL(path string) string {
	return s.PublicURLFn(path)
}
