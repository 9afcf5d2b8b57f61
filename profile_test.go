package persona

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultUsername(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		email    string
		username string
	}{
		{"a@b.com", "a"},
		{"ww.makin@buzkaaclicker.pl", "ww.makin"},
		{"first@second@example.com", "first"},
		{"@example.com", ""},
		{"no-at-sign", "no-at-sign"},
	}
	for _, tc := range cases {
		assert.Equal(tc.username, DefaultUsername(tc.email), tc.email)
	}
}

func TestAvatarPath(t *testing.T) {
	assert := assert.New(t)

	pattern := regexp.MustCompile(`^U2/[0-9a-f-]{36}\.png$`)
	path := AvatarPath("U2", "photo.png")
	assert.Regexp(pattern, path)

	assert.NotEqual(path, AvatarPath("U2", "photo.png"), "token must differ between uploads")

	assert.Regexp(`^U2/[0-9a-f-]{36}\.gz$`, AvatarPath("U2", "avatar.tar.gz"))
	assert.Regexp(`^U2/[0-9a-f-]{36}\.avatar$`, AvatarPath("U2", "avatar"))
}

func TestAvatarFileValidate(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		name        string
		contentType string
		valid       bool
	}{
		{"photo.png", "image/png", true},
		{"PHOTO.JPG", "image/jpeg", true},
		{"anim.gif", "", true},
		{"photo.webp", "application/octet-stream", true},
		{"evil.html", "text/html", false},
		{"evil.html", "image/png", false},
		{"evil.png", "text/html; charset=utf-8", false},
		{"vector.svg", "image/svg+xml", false},
		{"photo.png", "image/svg+xml", false},
		{"png", "image/png", false},
		{"photo.png", "not a type;;", false},
		{"", "image/png", false},
	}
	for _, tc := range cases {
		err := AvatarFile{Name: tc.name, ContentType: tc.contentType}.Validate()
		if tc.valid {
			assert.NoError(err, tc.name+" "+tc.contentType)
		} else {
			assert.Error(err, tc.name+" "+tc.contentType)
		}
	}
	assert.Equal("image/png", AvatarContentType("photo.PNG"))
}
