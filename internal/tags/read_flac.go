package tags

import (
	"bytes"
	"fmt"
	"strconv"

	goflac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
)

// readFLAC reads Vorbis comments and pictures with go-flac.
func readFLAC(data []byte) (*Tag, error) {
	f, err := goflac.ParseBytes(bytes.NewReader(skipID3(data)))
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}

	t := &Tag{}
	var first *Picture
	for _, meta := range f.Meta {
		switch meta.Type {
		case goflac.VorbisComment:
			cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				continue
			}
			t.Title = firstComment(cmts, flacvorbis.FIELD_TITLE)
			t.Artist = firstComment(cmts, flacvorbis.FIELD_ARTIST, "ALBUMARTIST")
			t.Album = firstComment(cmts, flacvorbis.FIELD_ALBUM)
			t.Genre = firstComment(cmts, flacvorbis.FIELD_GENRE)
			t.Lyrics = firstComment(cmts, "LYRICS", "UNSYNCEDLYRICS")
			if date := firstComment(cmts, flacvorbis.FIELD_DATE, "YEAR"); len(date) >= 4 {
				t.Year, _ = strconv.Atoi(date[:4])
			}
		case goflac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
			if err != nil || len(pic.ImageData) == 0 {
				continue
			}
			p := &Picture{Data: pic.ImageData, MIME: pictureMIME(pic.MIME, pic.ImageData)}
			if pic.PictureType == flacpicture.PictureTypeFrontCover {
				t.Picture = p
			} else if first == nil {
				first = p
			}
		}
	}
	if t.Picture == nil {
		t.Picture = first
	}
	return t, nil
}

func firstComment(cmts *flacvorbis.MetaDataBlockVorbisComment, keys ...string) string {
	for _, key := range keys {
		if values, err := cmts.Get(key); err == nil && len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}

// skipID3 returns data without a leading ID3v2 tag.
func skipID3(data []byte) []byte {
	if len(data) < 10 || string(data[:3]) != id3Magic {
		return data
	}
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	if 10+size > len(data) {
		return data
	}
	return data[10+size:]
}
