package player

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	flagBOS = 0x02
	flagEOS = 0x04
)

// oggPageBytes lays out one page. Each packet is split into 255-byte
// segments; openTail leaves the last packet unterminated.
func oggPageBytes(granule int64, flags byte, seq uint32, openTail bool, packets ...[]byte) []byte {
	var segs []byte
	var body []byte
	for i, p := range packets {
		n := len(p)
		for n >= 255 {
			segs = append(segs, 255)
			n -= 255
		}
		if !(openTail && i == len(packets)-1) {
			segs = append(segs, byte(n))
		}
		body = append(body, p...)
	}
	var buf bytes.Buffer
	buf.WriteString("OggS")
	buf.WriteByte(0)
	buf.WriteByte(flags)
	_ = binary.Write(&buf, binary.LittleEndian, granule)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
	_ = binary.Write(&buf, binary.LittleEndian, seq)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteByte(byte(len(segs)))
	buf.Write(segs)
	buf.Write(body)
	return buf.Bytes()
}

func opusHead(channels byte, preSkip uint16) []byte {
	head := []byte{'O', 'p', 'u', 's', 'H', 'e', 'a', 'd', 1, channels, 0, 0, 0x80, 0xBB, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint16(head[10:12], preSkip)
	return head
}

var opusTags = []byte{'O', 'p', 'u', 's', 'T', 'a', 'g', 's', 0, 0, 0, 0, 0, 0, 0, 0}

// opusStream is a two-channel Opus stream with five one-second audio pages.
func opusStream(preSkip int64) []byte {
	var buf bytes.Buffer
	buf.Write(oggPageBytes(0, flagBOS, 0, false, opusHead(2, uint16(preSkip)))) //nolint:gosec // test values
	buf.Write(oggPageBytes(0, 0, 1, false, opusTags))
	for i := int64(1); i <= 5; i++ {
		flags := byte(0)
		if i == 5 {
			flags = flagEOS
		}
		buf.Write(oggPageBytes(i*48000+preSkip, flags, uint32(i+1), false, make([]byte, 100))) //nolint:gosec // test values
	}
	return buf.Bytes()
}

func TestReadOggPageBody(t *testing.T) {
	tests := []struct {
		name        string
		segments    []uint8
		wantPackets []int
		wantPartial int
	}{
		{"two packets", []uint8{100, 50}, []int{100, 50}, 0},
		{"packet over several segments", []uint8{255, 255, 100}, []int{610}, 0},
		{"packet continues on next page", []uint8{255, 255}, nil, 510},
		{"complete then open", []uint8{100, 255, 255}, []int{100}, 510},
		{"zero segment terminates", []uint8{255, 0}, []int{255}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var size int
			for _, s := range tt.segments {
				size += int(s)
			}
			hdr := &oggPageHeader{SegmentTable: tt.segments}
			packets, partial, err := readOggPageBody(bytes.NewReader(make([]byte, size)), hdr)
			require.NoError(t, err)

			got := make([]int, 0, len(packets))
			for _, p := range packets {
				got = append(got, len(p))
			}
			if tt.wantPackets == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.wantPackets, got)
			}
			assert.Len(t, partial, tt.wantPartial)
		})
	}
}

func TestParseOggPageHeader_Errors(t *testing.T) {
	page := oggPageBytes(0, 0, 0, false, []byte{1})

	bad := append([]byte(nil), page...)
	copy(bad, "BadS")
	_, err := parseOggPageHeader(bytes.NewReader(bad))
	assert.ErrorIs(t, err, errInvalidOggMagic)

	bad = append([]byte(nil), page...)
	bad[4] = 1
	_, err = parseOggPageHeader(bytes.NewReader(bad))
	assert.ErrorIs(t, err, errInvalidOggVersion)
}

func TestOggReader_JoinsPacketAcrossPages(t *testing.T) {
	head := bytes.Repeat([]byte{0x01}, 510)
	tail := bytes.Repeat([]byte{0x02}, 100)

	var buf bytes.Buffer
	buf.Write(oggPageBytes(-1, 0, 0, true, head))
	buf.Write(oggPageBytes(480, oggFlagContinued, 1, false, tail, []byte{0x03}))

	r := newOggReader(bytes.NewReader(buf.Bytes()))
	first, err := r.readPage()
	require.NoError(t, err)
	assert.Empty(t, first.Packets)

	second, err := r.readPage()
	require.NoError(t, err)
	require.Len(t, second.Packets, 2)
	assert.Equal(t, append(append([]byte(nil), head...), tail...), second.Packets[0])
	assert.Equal(t, []byte{0x03}, second.Packets[1])
	assert.Equal(t, int64(480), second.GranulePos)
}

func TestOggReader_SeekDropsOrphanedTail(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(oggPageBytes(100, 0, 0, true, []byte{0xAA}, bytes.Repeat([]byte{0x01}, 255)))
	buf.Write(oggPageBytes(200, oggFlagContinued, 1, false, []byte{0x02}, []byte{0xBB}))

	r := newOggReader(bytes.NewReader(buf.Bytes()))
	start, err := r.seekToGranule(150)
	require.NoError(t, err)
	assert.Equal(t, int64(100), start)

	page, err := r.readPage()
	require.NoError(t, err)
	require.Len(t, page.Packets, 1, "the tail of the packet started before the seek is dropped")
	assert.Equal(t, []byte{0xBB}, page.Packets[0])
}

func TestDetectOggCodec(t *testing.T) {
	vorbisIdent := func(version uint32) []byte {
		p := make([]byte, 30)
		p[0] = 0x01
		copy(p[1:7], "vorbis")
		binary.LittleEndian.PutUint32(p[7:11], version)
		p[11] = 2
		binary.LittleEndian.PutUint32(p[12:16], 44100)
		return p
	}
	badOpus := opusHead(2, 0)
	badOpus[8] = 2

	tests := []struct {
		name    string
		packet  []byte
		wantErr error
		rate    int
	}{
		{"opus", opusHead(2, 312), nil, 48000},
		{"opus version", badOpus, errUnsupportedOpus, 0},
		{"opus truncated", opusHead(2, 0)[:12], errInvalidOpusHead, 0},
		{"vorbis", vorbisIdent(0), nil, 44100},
		{"vorbis version", vorbisIdent(1), errInvalidVorbisHeader, 0},
		{"unknown", []byte("FLAC"), errUnknownOggCodec, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := detectOggCodec(tt.packet)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rate, codec.SampleRate())
			assert.Equal(t, 2, codec.Channels())
		})
	}
}

func TestVorbisCodec_WaitsForAllHeaders(t *testing.T) {
	ident := make([]byte, 30)
	ident[0] = 0x01
	copy(ident[1:7], "vorbis")
	ident[11] = 1
	binary.LittleEndian.PutUint32(ident[12:16], 22050)

	c, err := newVorbisCodec(ident)
	require.NoError(t, err)
	assert.Zero(t, c.PreSkip())

	done, err := c.AddHeaderPacket([]byte("\x03vorbis"))
	require.NoError(t, err)
	assert.False(t, done, "the setup header is still missing")

	_, err = c.Decode([]byte{0}, make([]float32, 16))
	assert.ErrorIs(t, err, errVorbisNotReady)
}

func TestDecodeOgg_OpusLengthAndSeek(t *testing.T) {
	const preSkip = 312
	d, format, err := decodeOgg(payloadReader{bytes.NewReader(opusStream(preSkip))})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, 48000, int(format.SampleRate))
	assert.Equal(t, 2, format.NumChannels)
	assert.Equal(t, 5*48000, d.Len())
	assert.Zero(t, d.Position())

	tests := []struct {
		name   string
		target int
		want   int
	}{
		{"inside a page", 120000, 120000},
		{"start", 0, 0},
		{"past the end", 10 * 48000, 5 * 48000},
		{"negative", -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, d.Seek(tt.target))
			assert.Equal(t, tt.want, d.Position())
		})
	}
}

func TestDecodeOgg_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"unknown codec", oggPageBytes(0, flagBOS, 0, false, []byte("garbage!")), errUnknownOggCodec},
		{"headers only", oggPageBytes(0, flagBOS, 0, false, opusHead(2, 0)), errOggNoHeaders},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeOgg(payloadReader{bytes.NewReader(tt.data)})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_RoutesOggPayloads(t *testing.T) {
	d, format, err := decode(opusStream(0), "opus")
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, 48000, int(format.SampleRate))
}
