package playback

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/logger"
)

// TogglePlay pauses when playing, else starts playback.
func (e *Engine) TogglePlay() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.playing {
		e.pauseLocked()
		return nil
	}
	return e.playLocked()
}

// Play starts playback of the bound source, or of the current entry of the
// active list when nothing is bound. It counts as a user gesture.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.playLocked()
}

func (e *Engine) playLocked() error {
	if e.source == nil {
		if e.queue.IsEmpty() {
			return ErrEmptyQueue
		}
		return e.selectIndexLocked(max(e.queue.CurrentIndex(), 0), true)
	}
	if e.sourceEndedLocked() {
		e.ensureGraphLocked()
		return e.restartLocked(true)
	}
	e.ensureGraphLocked()
	e.startLocked()
	e.emitStateLocked()
	return nil
}

// Pause pauses playback. A running crossfade is abandoned.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseLocked()
}

func (e *Engine) pauseLocked() {
	e.cancelCrossfadeLocked()
	if e.source != nil {
		e.source.Pause()
		e.position = e.source.Position()
	}
	e.playing = false
	e.emitStateLocked()
}

// Seek moves the playhead, clamped to the track. It does nothing while the
// duration is unknown.
func (e *Engine) Seek(pos time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == nil || e.duration <= 0 {
		return nil
	}
	e.cancelCrossfadeLocked()
	pos = min(max(pos, 0), e.duration)
	if err := e.source.Seek(pos); err != nil {
		e.emitError(ErrorEvent{Op: errmsg.OpPlaybackSeek, TrackID: e.activeIDLocked(), Err: err})
		return fmt.Errorf("seek: %w", err)
	}
	e.position = pos
	e.emitStateLocked()
	return nil
}

// SetVolume sets the user volume, clamped to [0, 1]. During a crossfade the
// ramp owns the source volume and the new value applies when it ends.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clampVolume(v)
	e.fader.SetNominal(e.volume)
	e.emitStateLocked()
}

// SetShuffle enables or disables random navigation.
func (e *Engine) SetShuffle(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shuffle == enabled {
		return
	}
	e.shuffle = enabled
	e.emitModeLocked()
	e.emitStateLocked()
}

// SetRepeat enables or disables repeating the active track.
func (e *Engine) SetRepeat(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.repeat == enabled {
		return
	}
	e.repeat = enabled
	e.emitModeLocked()
	e.emitStateLocked()
}

// Next advances to the following track, or to a random one when shuffling.
// At the end of the active list playback stops on the last track.
func (e *Engine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.nextLocked()
}

func (e *Engine) nextLocked() error {
	if e.queue.IsEmpty() {
		return nil
	}
	index, ok := e.pickNextLocked()
	if !ok {
		e.stopAtEndLocked()
		return nil
	}
	return e.selectIndexLocked(index, true)
}

// Previous rewinds when more than three seconds have played, else goes back
// one entry. At the first entry it rewinds. When shuffling it picks a random
// entry like Next.
func (e *Engine) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.queue.IsEmpty() {
		return nil
	}
	if e.shuffle {
		return e.selectIndexLocked(e.shuffleIndexLocked(), true)
	}

	cur := e.queue.CurrentIndex()
	if e.livePositionLocked() > rewindThreshold || cur <= 0 {
		return e.rewindLocked()
	}
	return e.selectIndexLocked(cur-1, true)
}

// OnTrackEnded restarts the track when repeating, else advances.
func (e *Engine) OnTrackEnded() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.endedLocked()
}

func (e *Engine) endedLocked() error {
	// The crossfade commit performs the advance.
	if e.fader.Active() {
		return nil
	}
	if e.repeat {
		logger.Debug("repeating track", zap.Float64("track_id", e.activeIDLocked()))
		return e.restartLocked(true)
	}
	return e.nextLocked()
}

// pickNextLocked returns the index Next would select.
func (e *Engine) pickNextLocked() (int, bool) {
	n := e.queue.Len()
	if n == 0 {
		return -1, false
	}
	if e.shuffle {
		return e.shuffleIndexLocked(), true
	}
	if cur := e.queue.CurrentIndex(); cur+1 < n {
		return cur + 1, true
	}
	return -1, false
}

// shuffleIndexLocked draws a uniform index; if it hits the current entry
// the draw is repeated once over the other entries. A single-entry list
// reselects its only track.
func (e *Engine) shuffleIndexLocked() int {
	n := e.queue.Len()
	cur := e.queue.CurrentIndex()
	i := e.intn(n)
	if i != cur || n < 2 {
		return i
	}
	i = e.intn(n - 1)
	if i >= cur {
		i++
	}
	return i
}

// hasNextLocked reports whether Next would move to another track.
func (e *Engine) hasNextLocked() bool {
	if e.shuffle {
		return e.queue.Len() > 1
	}
	return e.queue.CurrentIndex() >= 0 && e.queue.HasNext()
}

func (e *Engine) stopAtEndLocked() {
	e.cancelCrossfadeLocked()
	if e.source != nil {
		e.source.Pause()
	}
	e.playing = false
	e.emitStateLocked()
}

func (e *Engine) rewindLocked() error {
	if e.source == nil {
		return nil
	}
	if e.sourceEndedLocked() {
		return e.restartLocked(e.playing)
	}
	e.cancelCrossfadeLocked()
	if err := e.source.Seek(0); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	e.position = 0
	e.emitStateLocked()
	return nil
}

func (e *Engine) livePositionLocked() time.Duration {
	if e.source != nil {
		e.position = e.source.Position()
	}
	return e.position
}
