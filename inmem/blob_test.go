package inmem

import (
	"context"
	"strings"
	"testing"

	"github.com/buzkaaclicker/persona"
	"github.com/stretchr/testify/assert"
)

func TestBlobStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewBlobStore("https://persona.test/storage/", persona.AvatarBucket)

	err := s.Upload(ctx, "U2/a.png", strings.NewReader("png"), persona.UploadOptions{ContentType: "image/png"})
	if !assert.NoError(err) {
		return
	}
	err = s.Upload(ctx, "U2/a.png", strings.NewReader("png2"), persona.UploadOptions{})
	assert.Equal(persona.KindConflict, persona.KindOf(err))

	err = s.Upload(ctx, "U2/a.png", strings.NewReader("png3"), persona.UploadOptions{Overwrite: true, CacheControl: "3600"})
	if !assert.NoError(err) {
		return
	}
	blob, ok := s.Get("U2/a.png")
	if assert.True(ok) {
		assert.Equal("png3", string(blob.Data))
		assert.Equal("3600", blob.CacheControl)
	}

	assert.Equal("https://persona.test/storage/avatars/U2/a.png", s.PublicURL("U2/a.png"))
	assert.Equal("https://persona.test/storage/avatars/U2/my%20photo.png", s.PublicURL("U2/my photo.png"))
}
