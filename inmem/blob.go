package inmem

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/buzkaaclicker/persona"
)

type Blob struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

type BlobStore struct {
	BaseURL string
	Bucket  string

	blobs map[string]Blob
	mutex sync.RWMutex
}

func NewBlobStore(baseURL string, bucket string) *BlobStore {
	return &BlobStore{
		BaseURL: baseURL,
		Bucket:  bucket,
		blobs:   map[string]Blob{},
	}
}

var _ persona.BlobStore = (*BlobStore)(nil)

func (s *BlobStore) Upload(ctx context.Context, path string, content io.Reader, opts persona.UploadOptions) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return persona.NewError("blobs.upload", persona.KindUnknown, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.blobs[path]; ok && !opts.Overwrite {
		return persona.NewError("blobs.upload", persona.KindConflict, nil)
	}
	s.blobs[path] = Blob{Data: buf.Bytes(), ContentType: opts.ContentType, CacheControl: opts.CacheControl}
	return nil
}

func (s *BlobStore) PublicURL(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + s.Bucket + "/" + strings.Join(segments, "/")
}

func (s *BlobStore) Get(path string) (Blob, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	b, ok := s.blobs[path]
	return b, ok
}

func (s *BlobStore) Paths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	paths := make([]string, 0, len(s.blobs))
	for p := range s.blobs {
		paths = append(paths, p)
	}
	return paths
}
