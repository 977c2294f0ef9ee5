// Package blob hands out temporary "blob:" URLs for in-memory byte buffers.
//
// Audio payloads and embedded artwork are registered here so the rest of the
// player can pass a short string around instead of the bytes. Every handle
// must be revoked once its owner is done with it.
package blob

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scheme prefixes every handle.
const Scheme = "blob:"

// Entry is the data behind a handle.
type Entry struct {
	Data []byte
	MIME string
}

// Registry maps handles to byte buffers. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Create registers data and returns its handle.
func (r *Registry) Create(data []byte, mime string) string {
	url := Scheme + uuid.NewString()
	r.mu.Lock()
	r.entries[url] = Entry{Data: data, MIME: mime}
	r.mu.Unlock()
	return url
}

// Get returns the entry behind url.
func (r *Registry) Get(url string) (Entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[url]
	r.mu.RUnlock()
	return e, ok
}

// Revoke releases url. Unknown or non-blob URLs are ignored.
func (r *Registry) Revoke(url string) {
	if !IsBlob(url) {
		return
	}
	r.mu.Lock()
	delete(r.entries, url)
	r.mu.Unlock()
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IsBlob reports whether url is a registry handle rather than a remote URL.
func IsBlob(url string) bool {
	return strings.HasPrefix(url, Scheme)
}
