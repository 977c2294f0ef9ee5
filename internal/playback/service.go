package playback

import (
	"context"
	"time"

	"github.com/llehouerou/ripple/internal/dsp"
	"github.com/llehouerou/ripple/internal/track"
)

// Service defines the playback engine contract.
type Service interface {
	// Track selection and transport
	SelectTrack(ctx context.Context, ref track.Ref, autoplay bool) error
	TogglePlay() error
	Play() error
	Pause()
	Seek(pos time.Duration) error
	SetVolume(v float64)
	Next() error
	Previous() error
	OnTrackEnded() error

	// Modes
	SetShuffle(enabled bool)
	SetRepeat(enabled bool)

	// Queue and library
	Enqueue(tracks ...track.Track)
	ClearQueue()
	Undo() bool
	Redo() bool
	AddToLibrary(tracks ...track.Track)
	RemoveFromLibrary(id float64)
	Retag(id float64, title, artist string) error
	LoadLibrary(ctx context.Context) error
	Resume(ctx context.Context) error

	// Audio processing
	SetBandGain(index int, db float64) error
	SetQFactor(q float64)
	EQ() dsp.EQ
	Spectrum() []float64
	SetDSP(s DSPSettings)
	DSP() DSPSettings

	// State queries
	State() State
	Metadata() Metadata
	Current() *track.Track
	CurrentIndex() int
	Queue() []track.Track
	Library() []track.Track
	Recents() []track.Track
	HiRes() bool
	TwentyFourBit() bool

	// Event subscription
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)

	// Lifecycle
	Run(ctx context.Context)
	Close() error
}
