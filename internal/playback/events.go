package playback

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/track"
)

// StateChange is emitted when playback state changes, including position
// updates while playing.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when a different track becomes active.
//
// Emitted by SelectTrack, Next, Previous, the end-of-track advance and the
// crossfade commit. Current is nil when the active track was removed.
// Tracks never carry their payload.
type TrackChange struct {
	Previous      *track.Track
	Current       *track.Track
	PreviousIndex int
	Index         int
}

// Metadata is the display information of the active track.
type Metadata struct {
	TrackID float64
	Title   string
	Artist  string
	// CoverURL is a blob handle or a remote URL.
	CoverURL      string
	Accent        colorful.Color
	Lyrics        string
	ArtworkSource string
	HiRes         bool
	TwentyFourBit bool
}

// MetadataChange is emitted when resolution improves the active track's
// metadata.
type MetadataChange struct {
	Metadata Metadata
}

// QueueChange is emitted when the queue, library or recents change.
type QueueChange struct {
	Queue       []track.Track
	Library     []track.Track
	Recents     []track.Track
	Index       int
	QueueActive bool
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	Shuffle bool
	Repeat  bool
}

// ErrorEvent is emitted when a user-visible operation fails.
type ErrorEvent struct {
	Op      errmsg.Op
	TrackID float64
	Err     error
}

// Message returns the user-facing text of the error.
func (e ErrorEvent) Message() string {
	return errmsg.Format(e.Op, e.Err)
}
