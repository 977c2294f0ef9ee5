// Package player turns encoded audio payloads into controllable sources and
// routes them to the host audio device.
package player

import (
	"errors"
	"time"

	"github.com/llehouerou/ripple/internal/dsp"
)

// ErrPlaybackBlocked is returned by Source.Play when the host refuses to
// start audio output.
var ErrPlaybackBlocked = errors.New("playback blocked by host")

// Source is one decoded, controllable audio stream.
type Source interface {
	// Handle is the blob handle the source was opened from.
	Handle() string
	Play() error
	Pause()
	Playing() bool
	State() State
	Seek(pos time.Duration) error
	Position() time.Duration
	// Duration returns 0 when the length is unknown.
	Duration() time.Duration
	SetVolume(level float64)
	Volume() float64
	// Ended is closed when the stream reaches its end.
	Ended() <-chan struct{}
	Close() error
}

// Output is the host audio device.
type Output interface {
	Open(handle string, data []byte, format string) (Source, error)
	// NewGraph builds the processing graph at the device rate.
	NewGraph(eq dsp.EQ) (*dsp.Graph, error)
	// Route sends src through g, or straight to the device when g is nil.
	Route(src Source, g *dsp.Graph) error
	// SetQuality sets the resampling quality (1..6) for later Opens.
	SetQuality(q int)
}
