package persona

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

type Profile struct {
	UserId    UserId
	Username  string
	AvatarUrl *string
	UpdatedAt time.Time
}

type ProfileStore interface {
	// Fails with KindNotFound when the user has no profile yet.
	Get(ctx context.Context, userId UserId) (Profile, error)

	// Fails with KindConflict when a profile for the user already exists.
	Insert(ctx context.Context, profile Profile) error

	// Insert-or-replace keyed on user id.
	Upsert(ctx context.Context, profile Profile) error

	UpdateAvatarUrl(ctx context.Context, userId UserId, avatarUrl string) error
}

// DefaultUsername is the part of email before its first '@'.
func DefaultUsername(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

const AvatarBucket = "avatars"

type UploadOptions struct {
	Overwrite    bool
	CacheControl string
	ContentType  string
}

type BlobStore interface {
	Upload(ctx context.Context, path string, content io.Reader, opts UploadOptions) error

	// PublicURL resolves a stored path without any I/O.
	PublicURL(path string) string
}

// AvatarFile is an image picked by the user.
type AvatarFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

var avatarExtensions = []interface{}{"png", "jpg", "jpeg", "gif", "webp"}

// Validate accepts raster images only, judged by the file extension and the
// declared content type. Browsers declare unknown files as octet streams.
func (f AvatarFile) Validate() error {
	if !strings.Contains(f.Name, ".") {
		return errors.New("extension: cannot be blank")
	}
	err := validation.Validate(strings.ToLower(fileExtension(f.Name)),
		validation.Required, validation.In(avatarExtensions...))
	if err != nil {
		return fmt.Errorf("extension: %w", err)
	}
	if f.ContentType == "" {
		return nil
	}
	contentType, _, err := mime.ParseMediaType(f.ContentType)
	switch {
	case err != nil:
		return fmt.Errorf("content type: %w", err)
	case contentType == "application/octet-stream":
	case strings.HasPrefix(contentType, "image/") && contentType != "image/svg+xml":
	default:
		return errors.New("content type: must be an image")
	}
	return nil
}

// AvatarContentType is the content type stored with an avatar, derived from
// its extension.
func AvatarContentType(fileName string) string {
	return mime.TypeByExtension("." + strings.ToLower(fileExtension(fileName)))
}

// AvatarPath returns "{userId}/{random}.{ext}". A fresh random token is
// generated on every call.
func AvatarPath(userId UserId, fileName string) string {
	return string(userId) + "/" + uuid.NewString() + "." + fileExtension(fileName)
}

// fileExtension returns the text after the last dot, or the whole name when
// it has none.
func fileExtension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
