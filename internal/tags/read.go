package tags

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dhowden/tag"
)

// ErrNoTags is returned when no reader found any metadata.
var ErrNoTags = errors.New("no embedded tags")

// ReadBytes reads embedded tags from an audio payload.
//
// dhowden/tag runs first. When it fails, or leaves title, artist or artwork
// empty, the format-specific reader (id3v2 for MP3, go-flac for FLAC) fills
// the gaps. The returned error joins every reader failure and is only
// non-nil when nothing could be read.
func ReadBytes(data []byte, format string) (*Tag, error) {
	var errs []error

	t, err := readGeneric(data)
	if err != nil {
		errs = append(errs, fmt.Errorf("generic: %w", err))
		t = &Tag{}
	}
	if t.Complete() {
		return t, nil
	}

	var (
		fallback *Tag
		ferr     error
	)
	switch {
	case isFLAC(data, format):
		fallback, ferr = readFLAC(data)
	case isMP3(data, format):
		fallback, ferr = readMP3(data)
	}
	if ferr != nil {
		errs = append(errs, ferr)
	}
	t.merge(fallback)

	if *t == (Tag{}) {
		errs = append(errs, ErrNoTags)
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func readGeneric(data []byte) (*Tag, error) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	t := &Tag{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
		Year:   m.Year(),
		Lyrics: m.Lyrics(),
	}
	if t.Artist == "" {
		t.Artist = m.AlbumArtist()
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		t.Picture = &Picture{Data: pic.Data, MIME: pictureMIME(pic.MIMEType, pic.Data)}
	}
	return t, nil
}

func isFLAC(data []byte, format string) bool {
	if bytes.HasPrefix(data, []byte("fLaC")) {
		return true
	}
	return normalize(format) == "FLAC"
}

func isMP3(data []byte, format string) bool {
	if bytes.HasPrefix(data, []byte(id3Magic)) && normalize(format) != "FLAC" {
		return true
	}
	return normalize(format) == "MP3"
}
