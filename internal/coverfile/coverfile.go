// Package coverfile exposes in-memory covers as files for desktop
// integrations that only accept paths or file:// URLs.
package coverfile

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/logger"
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DefaultDir returns a per-user directory under the system temp dir.
func DefaultDir(name string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("ripple-%d", os.Getuid()), name)
}

// Cache holds at most one cover file. Remote covers pass through; blob
// covers are written to dir and replaced on the next Update.
type Cache struct {
	dir   string
	blobs *blob.Registry

	mu   sync.Mutex
	key  string
	url  string
	path string
}

// New creates a cache writing into dir.
func New(dir string, blobs *blob.Registry) *Cache {
	return &Cache{dir: dir, blobs: blobs}
}

// URL returns the cover as a URL, file:// for blob covers.
func (c *Cache) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Path returns the local file of a blob cover, "" otherwise.
func (c *Cache) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Update makes coverURL the current cover.
func (c *Cache) Update(coverURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if coverURL == c.key {
		return
	}
	c.removeLocked()
	c.key = coverURL

	switch {
	case coverURL == "":
	case !blob.IsBlob(coverURL):
		c.url = coverURL
	default:
		entry, ok := c.blobs.Get(coverURL)
		if !ok {
			return
		}
		path, err := c.writeLocked(coverURL, entry)
		if err != nil {
			logger.Warn("coverfile: write cover", zap.String("dir", c.dir), zap.Error(err))
			return
		}
		c.path = path
		c.url = "file://" + path
	}
}

func (c *Cache) writeLocked(key string, entry blob.Entry) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	ext, ok := extensions[strings.ToLower(entry.MIME)]
	if !ok {
		ext = ".img"
	}
	h := fnv.New64a()
	h.Write([]byte(key))
	path := filepath.Join(c.dir, fmt.Sprintf("cover-%x%s", h.Sum64(), ext))
	if err := os.WriteFile(path, entry.Data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Cache) removeLocked() {
	if c.path != "" {
		_ = os.Remove(c.path)
	}
	c.path = ""
	c.url = ""
}

// Close deletes the cover file.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked()
	c.key = ""
}
