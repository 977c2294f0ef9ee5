package lastfm

import "time"

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time // When playback started
}

// ScrobbleState tracks the scrobbling status of the current track.
type ScrobbleState struct {
	TrackID        float64
	StartedAt      time.Time
	Scrobbled      bool
	NowPlayingSent bool
}

// minScrobbleLength is the shortest track Last.fm accepts.
const minScrobbleLength = 30 * time.Second

// Threshold is how long a track of duration d must play before it is
// scrobbled: half its length, capped at four minutes. Tracks shorter than
// 30 seconds are never scrobbled.
func Threshold(d time.Duration) (time.Duration, bool) {
	if d < minScrobbleLength {
		return 0, false
	}
	return min(d/2, 4*time.Minute), true
}
