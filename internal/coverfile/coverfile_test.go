package coverfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/ripple/internal/blob"
)

func TestCache_BlobCoverWrittenToDisk(t *testing.T) {
	blobs := blob.NewRegistry()
	c := New(t.TempDir(), blobs)

	handle := blobs.Create([]byte("png bytes"), "image/png")
	c.Update(handle)

	url := c.URL()
	require.True(t, strings.HasPrefix(url, "file://"), url)
	path := strings.TrimPrefix(url, "file://")
	assert.Equal(t, path, c.Path())
	assert.Equal(t, ".png", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))

	c.Update("https://example.com/a.jpg")
	assert.Equal(t, "https://example.com/a.jpg", c.URL())
	assert.Empty(t, c.Path())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "previous cover file removed")
}

func TestCache_Empty(t *testing.T) {
	blobs := blob.NewRegistry()
	c := New(t.TempDir(), blobs)

	c.Update("")
	assert.Empty(t, c.URL())

	c.Update("blob:revoked")
	assert.Empty(t, c.URL(), "revoked handles have no art")
}

func TestCache_UnknownMIME(t *testing.T) {
	blobs := blob.NewRegistry()
	c := New(t.TempDir(), blobs)

	c.Update(blobs.Create([]byte("x"), "application/octet-stream"))
	assert.Equal(t, ".img", filepath.Ext(c.Path()))
}

func TestCache_Close(t *testing.T) {
	blobs := blob.NewRegistry()
	dir := t.TempDir()
	c := New(dir, blobs)
	c.Update(blobs.Create([]byte("x"), "image/jpeg"))

	c.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, c.URL())
}
