package util //nolint:revive // package name util hosts shared media-type helpers used by provider and storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"generations/music/abc.mp3", "audio/mpeg"},
		{"/files/clip.MP4", "video/mp4"},
		{"art.webp", "image/webp"},
		{"noext", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentTypeForPath(tt.path))
		})
	}
}

func TestExtensionForContentType(t *testing.T) {
	assert.Equal(t, ".mp3", ExtensionForContentType("audio/mpeg"))
	assert.Equal(t, ".jpg", ExtensionForContentType("image/jpeg"))
	assert.Equal(t, ".png", ExtensionForContentType("image/png; charset=binary"))
	assert.Equal(t, ".mov", ExtensionForContentType("video/quicktime"))
	assert.Empty(t, ExtensionForContentType("not a type;;"))
}
