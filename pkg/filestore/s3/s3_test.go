package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentType(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	tests := []struct {
		path string
		head []byte
		want string
	}{
		{"cover.bin", png, "image/png"},
		{"song.json", []byte(`{"a":1}`), "application/json"},
		{"export.txt", []byte("Title"), "text/plain; charset=utf-8"},
		{"loop.MP4", nil, "video/mp4"},
	}
	for _, tt := range tests {
		got, err := ContentType(tt.path, tt.head)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := ContentType("x.bin", []byte("???"))
	assert.Error(t, err)
}
