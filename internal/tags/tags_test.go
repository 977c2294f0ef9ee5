package tags

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/bogem/id3v2/v2"
	goflac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// makeID3 returns an ID3v2 tag followed by a few fake MPEG frame bytes.
func makeID3(t *testing.T, title, artist string, cover []byte) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	tag.SetTitle(title)
	tag.SetArtist(artist)
	tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
		Encoding:          id3v2.EncodingUTF8,
		Language:          "eng",
		ContentDescriptor: "",
		Lyrics:            "la la la",
	})
	if cover != nil {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/png",
			PictureType: id3v2.PTFrontCover,
			Picture:     cover,
		})
	}
	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	buf.Write([]byte{0xFF, 0xFB, 0x90, 0x00})
	buf.Write(make([]byte, 64))
	return buf.Bytes()
}

func streamInfo(rate, channels, bits int, samples uint64) []byte {
	data := make([]byte, 34)
	binary.BigEndian.PutUint16(data[0:], 4096)
	binary.BigEndian.PutUint16(data[2:], 4096)
	v := uint64(rate)<<44 | uint64(channels-1)<<41 | uint64(bits-1)<<36 | samples
	binary.BigEndian.PutUint64(data[10:], v)
	return data
}

func makeFLAC(t *testing.T, title, artist string, cover []byte) []byte {
	t.Helper()
	cmts := flacvorbis.New()
	require.NoError(t, cmts.Add(flacvorbis.FIELD_TITLE, title))
	require.NoError(t, cmts.Add(flacvorbis.FIELD_ARTIST, artist))
	require.NoError(t, cmts.Add(flacvorbis.FIELD_DATE, "1999-04-01"))
	cmtBlock := cmts.Marshal()

	f := &goflac.File{
		Meta: []*goflac.MetaDataBlock{
			{Type: goflac.StreamInfo, Data: streamInfo(44100, 2, 24, 88200)},
			&cmtBlock,
		},
	}
	if cover != nil {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "front", cover, "image/png")
		require.NoError(t, err)
		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}
	return f.Marshal()
}

func TestReadBytes_MP3(t *testing.T) {
	cover := makePNG(t)
	data := makeID3(t, "Song", "Band", cover)

	tag, err := ReadBytes(data, "MP3")
	require.NoError(t, err)
	assert.Equal(t, "Song", tag.Title)
	assert.Equal(t, "Band", tag.Artist)
	require.NotNil(t, tag.Picture)
	assert.Equal(t, cover, tag.Picture.Data)
	assert.Equal(t, "image/png", tag.Picture.MIME)
}

func TestReadMP3_Fallback(t *testing.T) {
	cover := makePNG(t)
	tag, err := readMP3(makeID3(t, "Song", "Band", cover))
	require.NoError(t, err)

	assert.Equal(t, "Song", tag.Title)
	assert.Equal(t, "Band", tag.Artist)
	assert.Equal(t, "la la la", tag.Lyrics)
	require.NotNil(t, tag.Picture)
	assert.Equal(t, cover, tag.Picture.Data)
}

func TestReadFLAC_Fallback(t *testing.T) {
	cover := makePNG(t)
	tag, err := readFLAC(makeFLAC(t, "Tune", "Player", cover))
	require.NoError(t, err)

	assert.Equal(t, "Tune", tag.Title)
	assert.Equal(t, "Player", tag.Artist)
	assert.Equal(t, 1999, tag.Year)
	require.NotNil(t, tag.Picture)
	assert.Equal(t, "image/png", tag.Picture.MIME)
}

func TestReadBytes_NoTags(t *testing.T) {
	_, err := ReadBytes([]byte("not audio at all"), "")
	assert.ErrorIs(t, err, ErrNoTags)
}

func TestReadInfo_FLAC(t *testing.T) {
	info, err := ReadInfo(makeFLAC(t, "a", "b", nil), "flac")
	require.NoError(t, err)
	assert.Equal(t, "FLAC", info.Format)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 24, info.BitDepth)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 2*time.Second, info.Duration)
}

func TestReadInfo_WAV(t *testing.T) {
	const rate, frames = 8000, 4000
	var buf bytes.Buffer
	w := func(v any) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }
	buf.WriteString("RIFF")
	w(uint32(36 + frames*4))
	buf.WriteString("WAVEfmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(2))
	w(uint32(rate))
	w(uint32(rate * 4))
	w(uint16(4))
	w(uint16(16))
	buf.WriteString("data")
	w(uint32(frames * 4))
	buf.Write(make([]byte, frames*4))

	info, err := ReadInfo(buf.Bytes(), "wav")
	require.NoError(t, err)
	assert.Equal(t, "WAV", info.Format)
	assert.Equal(t, rate, info.SampleRate)
	assert.Equal(t, 16, info.BitDepth)
	assert.InDelta(t, float64(500*time.Millisecond), float64(info.Duration), float64(10*time.Millisecond))
}

func TestReadInfo_Unsupported(t *testing.T) {
	_, err := ReadInfo([]byte("OggS"), "ogg")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPictureMIME(t *testing.T) {
	img := makePNG(t)
	tests := []struct {
		name string
		mime string
		data []byte
		want string
	}{
		{"passes through", "image/png", nil, "image/png"},
		{"jpg alias", "image/jpg", nil, "image/jpeg"},
		{"id3v2.2 short form", "PNG", nil, "image/png"},
		{"sniffs empty", "", img, "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pictureMIME(tt.mime, tt.data))
		})
	}
}

func TestSkipID3(t *testing.T) {
	data := append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 2, 0, 0}, []byte("fLaC")...)
	assert.Equal(t, []byte("fLaC"), skipID3(data))
	assert.Equal(t, []byte("fLaC"), skipID3([]byte("fLaC")))
}
