package playback

import (
	"time"

	"github.com/llehouerou/ripple/internal/player"
)

// State is an immutable snapshot of the playback state.
type State struct {
	IsPlaying     bool
	Volume        float64
	IsShuffle     bool
	IsRepeat      bool
	IsCrossfading bool
	CurrentTime   time.Duration
	Duration      time.Duration
}

// Status maps the snapshot onto the player's three-state model.
func (s State) Status(hasSource bool) player.State {
	switch {
	case !hasSource:
		return player.Stopped
	case s.IsPlaying:
		return player.Playing
	default:
		return player.Paused
	}
}

// DSPSettings are the user's processing preferences.
type DSPSettings struct {
	AIUpsampling bool
	// UpsamplingLevel is the resampler quality, 1..6.
	UpsamplingLevel int
	SmartCrossfade  bool
	// CrossfadeDuration is in seconds.
	CrossfadeDuration float64
	// PhaseCorrection is informational only.
	PhaseCorrection bool
}

const (
	DefaultCrossfadeSeconds = 5.0
	MinUpsamplingLevel      = 1
	MaxUpsamplingLevel      = 6
)

// DefaultDSPSettings returns the settings used without a config file.
func DefaultDSPSettings() DSPSettings {
	return DSPSettings{
		UpsamplingLevel:   player.DefaultQuality,
		CrossfadeDuration: DefaultCrossfadeSeconds,
	}
}

// Normalized clamps out-of-range values.
func (d DSPSettings) Normalized() DSPSettings {
	d.UpsamplingLevel = min(max(d.UpsamplingLevel, MinUpsamplingLevel), MaxUpsamplingLevel)
	if d.CrossfadeDuration <= 0 {
		d.CrossfadeDuration = DefaultCrossfadeSeconds
	}
	return d
}

// Quality returns the resampler quality the output should use.
func (d DSPSettings) Quality() int {
	if !d.AIUpsampling {
		return player.DefaultQuality
	}
	return d.Normalized().UpsamplingLevel
}

// Window is the crossfade length as a duration.
func (d DSPSettings) Window() time.Duration {
	return time.Duration(d.CrossfadeDuration * float64(time.Second))
}

func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}
