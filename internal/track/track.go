// Package track defines the track record and the references that resolve to it.
package track

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind distinguishes persisted library tracks from session-only ones.
type Kind int

const (
	LibraryTrack Kind = iota
	TransientTrack
)

func (k Kind) String() string {
	switch k {
	case LibraryTrack:
		return "library"
	case TransientTrack:
		return "transient"
	default:
		return "unknown"
	}
}

// Payload is the raw encoded audio of a track.
type Payload struct {
	Name string
	Data []byte
}

// Track is one playable item.
//
// IDs are unique within a collection; titles are not.
type Track struct {
	ID       float64
	Title    string
	Artist   string
	Format   string
	Folder   string
	Lyrics   string
	CoverURL string
	Payload  *Payload

	// Transient is set for tracks that only live for the session.
	Transient bool
	AddedAt   time.Time
}

// Kind reports whether the track is a library or a transient track.
func (t Track) Kind() Kind {
	if t.Transient {
		return TransientTrack
	}
	return LibraryTrack
}

// HasPayload reports whether the audio bytes are loaded in memory.
func (t Track) HasPayload() bool {
	return t.Payload != nil && len(t.Payload.Data) > 0
}

// WithoutPayload returns a copy that drops the audio bytes.
func (t Track) WithoutPayload() Track {
	t.Payload = nil
	return t
}

// NewTransient builds a session-only track from raw bytes. Its id comes from
// NextID, so tracks created in the same millisecond stay distinct.
func NewTransient(name string, data []byte, now time.Time) Track {
	return Track{
		ID:        NextID(now),
		Title:     TitleFromName(name),
		Artist:    UnknownArtist,
		Format:    FormatFromName(name),
		Payload:   &Payload{Name: name, Data: data},
		Transient: true,
		AddedAt:   now,
	}
}

// UnknownArtist is the artist placeholder for untagged imports.
const UnknownArtist = "Unknown Artist"

// TitleFromName returns the base filename without its extension.
func TitleFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
