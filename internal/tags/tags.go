// Package tags reads embedded metadata and stream properties from in-memory
// audio payloads.
package tags

import (
	"net/http"
	"strings"
	"time"
)

// id3Magic is the magic bytes for ID3v2 header detection.
const id3Magic = "ID3"

// Picture is embedded artwork.
type Picture struct {
	Data []byte
	MIME string
}

// Tag is the embedded metadata of one payload.
type Tag struct {
	Title   string
	Artist  string
	Album   string
	Genre   string
	Year    int
	Lyrics  string
	Picture *Picture
}

// Complete reports whether title, artist and artwork are all present.
func (t *Tag) Complete() bool {
	return t.Title != "" && t.Artist != "" && t.Picture != nil
}

// merge fills empty fields of t from o.
func (t *Tag) merge(o *Tag) {
	if o == nil {
		return
	}
	if t.Title == "" {
		t.Title = o.Title
	}
	if t.Artist == "" {
		t.Artist = o.Artist
	}
	if t.Album == "" {
		t.Album = o.Album
	}
	if t.Genre == "" {
		t.Genre = o.Genre
	}
	if t.Year == 0 {
		t.Year = o.Year
	}
	if t.Lyrics == "" {
		t.Lyrics = o.Lyrics
	}
	if t.Picture == nil {
		t.Picture = o.Picture
	}
}

// AudioInfo contains audio stream properties (not tags).
type AudioInfo struct {
	Duration   time.Duration
	Format     string // MP3, FLAC, WAV
	SampleRate int
	BitDepth   int
	Channels   int
}

// pictureMIME returns a usable MIME type, sniffing data when the tag has none.
func pictureMIME(mime string, data []byte) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "image/jpg":
		return "image/jpeg"
	case "", "-->", "image/":
		return http.DetectContentType(data)
	}
	if !strings.Contains(mime, "/") {
		// ID3v2.2 stores a three letter image format.
		return "image/" + mime
	}
	return mime
}
