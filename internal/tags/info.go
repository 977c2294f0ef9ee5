package tags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// ErrUnsupportedFormat is returned by ReadInfo for formats it cannot read.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ReadInfo reads stream properties without decoding audio.
func ReadInfo(data []byte, format string) (*AudioInfo, error) {
	body := skipID3(data)
	switch {
	case bytes.HasPrefix(body, []byte("fLaC")) || normalize(format) == "FLAC":
		return infoFLAC(body)
	case bytes.HasPrefix(body, []byte("RIFF")) || normalize(format) == "WAV":
		return infoWAV(body)
	case normalize(format) == "MP3" || len(body) >= 2 && body[0] == 0xFF && body[1]&0xE0 == 0xE0:
		return infoMP3(body)
	}
	return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
}

// infoFLAC reads the STREAMINFO block.
func infoFLAC(data []byte) (*AudioInfo, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flac: %w", err)
	}
	defer stream.Close()

	si := stream.Info
	info := &AudioInfo{
		Format:     "FLAC",
		SampleRate: int(si.SampleRate),
		BitDepth:   int(si.BitsPerSample),
		Channels:   int(si.NChannels),
	}
	if si.NSamples > 0 && si.SampleRate > 0 {
		info.Duration = time.Duration(float64(si.NSamples) / float64(si.SampleRate) * float64(time.Second))
	}
	return info, nil
}

// infoWAV reads the RIFF header.
func infoWAV(data []byte) (*AudioInfo, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("wav: invalid file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return nil, errors.New("wav: invalid header")
	}
	info := &AudioInfo{
		Format:     "WAV",
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
		Channels:   int(dec.NumChans),
	}
	if d, err := dec.Duration(); err == nil {
		info.Duration = d
	}
	return info, nil
}

// infoMP3 sums frame durations. MP3 decodes to 16 bits.
func infoMP3(data []byte) (*AudioInfo, error) {
	dec := mp3.NewDecoder(bytes.NewReader(data))
	var (
		total   time.Duration
		skipped int
		frames  int
	)
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return nil, fmt.Errorf("mp3: %w", err)
		}
		total += fr.Duration()
		frames++
	}
	if frames == 0 {
		return nil, errors.New("mp3: no frames")
	}
	return &AudioInfo{
		Duration: total,
		Format:   "MP3",
		BitDepth: 16,
		Channels: 2,
	}, nil
}

func normalize(format string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(format), "."))
}
