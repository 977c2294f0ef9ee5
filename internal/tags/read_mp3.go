package tags

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

// readMP3 reads an ID3v2 tag with bogem/id3v2. It is the fallback for tags
// dhowden/tag cannot decode, such as some UTF-16 frames.
func readMP3(data []byte) (*Tag, error) {
	id3tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("id3v2: %w", err)
	}

	t := &Tag{
		Title:  id3tag.Title(),
		Artist: id3tag.Artist(),
		Album:  id3tag.Album(),
		Genre:  id3tag.Genre(),
	}
	if t.Artist == "" {
		t.Artist = getID3TextFrame(id3tag, "TPE2")
	}
	if year := id3tag.Year(); len(year) >= 4 {
		t.Year, _ = strconv.Atoi(year[:4])
	}

	for _, f := range id3tag.GetFrames(id3tag.CommonID("Unsynchronised lyrics/text transcription")) {
		if uslt, ok := f.(id3v2.UnsynchronisedLyricsFrame); ok && uslt.Lyrics != "" {
			t.Lyrics = uslt.Lyrics
			break
		}
	}

	t.Picture = pickID3Picture(id3tag.GetFrames(id3tag.CommonID("Attached picture")))
	return t, nil
}

// pickID3Picture prefers the front cover and falls back to the first image.
func pickID3Picture(frames []id3v2.Framer) *Picture {
	var first *Picture
	for _, f := range frames {
		pf, ok := f.(id3v2.PictureFrame)
		if !ok || len(pf.Picture) == 0 {
			continue
		}
		pic := &Picture{Data: pf.Picture, MIME: pictureMIME(pf.MimeType, pf.Picture)}
		if pf.PictureType == id3v2.PTFrontCover {
			return pic
		}
		if first == nil {
			first = pic
		}
	}
	return first
}

// getID3TextFrame reads a text frame value from an ID3v2 tag.
func getID3TextFrame(id3tag *id3v2.Tag, frameID string) string {
	frames := id3tag.GetFrames(frameID)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}
