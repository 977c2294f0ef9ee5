package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"
	"github.com/llehouerou/go-mp3"

	"github.com/llehouerou/ripple/internal/track"
)

type codec int

const (
	codecUnknown codec = iota
	codecMP3
	codecFLAC
	codecWAV
	codecOgg
)

// ErrUnsupportedFormat is returned for payloads no decoder understands.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// sniff identifies the codec from magic bytes, falling back to the format tag.
func sniff(data []byte, format string) codec {
	switch {
	case len(data) >= 4 && string(data[:4]) == "fLaC":
		return codecFLAC
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return codecWAV
	case len(data) >= 4 && string(data[:4]) == "OggS":
		return codecOgg
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return codecMP3
	}

	switch track.NormalizeFormat(format) {
	case "MP3":
		return codecMP3
	case "FLAC":
		return codecFLAC
	case "WAV":
		return codecWAV
	case "OGG", "OGA", "OPUS":
		return codecOgg
	}
	return codecUnknown
}

// payloadReader serves an in-memory payload to decoders that want to close it.
type payloadReader struct {
	*bytes.Reader
}

func (payloadReader) Close() error { return nil }

// decode opens an in-memory payload.
func decode(data []byte, format string) (beep.StreamSeekCloser, beep.Format, error) {
	r := payloadReader{bytes.NewReader(data)}

	// ID3v2 may prefix both MP3 and (with some taggers) FLAC files.
	if err := skipID3v2(r); err != nil {
		return nil, beep.Format{}, err
	}
	off, _ := r.Seek(0, io.SeekCurrent)

	c := sniff(data[off:], format)
	switch c {
	case codecMP3:
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, beep.Format{}, err
		}
		return decodeMP3(r)
	case codecFLAC:
		return flac.Decode(r)
	case codecWAV:
		return wav.Decode(r)
	case codecOgg:
		return decodeOgg(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of r.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// Syncsafe size: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}

// mp3Decoder adapts llehouerou/go-mp3 to beep.StreamSeekCloser.
type mp3Decoder struct {
	decoder *mp3.Decoder
	closer  io.Closer
	err     error
	buf     []byte
}

func decodeMP3(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}
	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2, // go-mp3 always outputs stereo
		Precision:   2,
	}
	return &mp3Decoder{decoder: decoder, closer: rc, buf: make([]byte, 8192)}, format, nil
}

func (d *mp3Decoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}

	// 16-bit stereo frames.
	need := len(samples) * 4
	if len(d.buf) < need {
		d.buf = make([]byte, need)
	}

	read, err := io.ReadFull(d.decoder, d.buf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = err
		return 0, false
	}

	frames := read / 4
	if frames == 0 {
		return 0, false
	}
	for i := range frames {
		off := i * 4
		left := int16(binary.LittleEndian.Uint16(d.buf[off:]))    //nolint:gosec // audio samples
		right := int16(binary.LittleEndian.Uint16(d.buf[off+2:])) //nolint:gosec // audio samples
		samples[i][0] = float64(left) / 32768.0
		samples[i][1] = float64(right) / 32768.0
	}
	return frames, true
}

func (d *mp3Decoder) Err() error { return d.err }

func (d *mp3Decoder) Len() int {
	return int(max(d.decoder.SampleCount(), 0))
}

func (d *mp3Decoder) Position() int {
	return int(d.decoder.SamplePosition())
}

func (d *mp3Decoder) Seek(p int) error {
	p = max(0, min(p, d.Len()))
	if err := d.decoder.SeekToSample(int64(p)); err != nil {
		return err
	}
	d.err = nil
	return nil
}

func (d *mp3Decoder) Close() error { return d.closer.Close() }
