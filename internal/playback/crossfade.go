package playback

import (
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/crossfade"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/player"
	"github.com/llehouerou/ripple/internal/track"
)

// secondary is the incoming source of a crossfade. Closing it releases its
// blob handle.
type secondary struct {
	player.Source
	blobs *blob.Registry
}

func (s *secondary) Close() error {
	err := s.Source.Close()
	s.blobs.Revoke(s.Handle())
	return err
}

// maybeCrossfadeLocked starts a crossfade into the next track when the
// entry guard allows it.
func (e *Engine) maybeCrossfadeLocked() {
	if !e.playing || e.source == nil || e.skipFade == e.generation {
		return
	}
	ok := crossfade.Eligible(crossfade.Conditions{
		Smart:       e.dsp.SmartCrossfade,
		Repeat:      e.repeat,
		HasNext:     e.hasNextLocked(),
		Crossfading: e.fader.Active(),
		Duration:    e.duration,
		Position:    e.position,
		Window:      e.dsp.Window(),
	})
	if !ok {
		return
	}

	target := e.fadeTargetLocked()
	if target == nil {
		return
	}
	// Re-evaluated on the next tick once the payload is in memory.
	if !target.ready() {
		return
	}
	if target.err != nil {
		// Not retried for this track; the end of track advances normally.
		e.skipFade = e.generation
		logger.Warn("crossfade: load next track", zap.Float64("track_id", target.id), zap.Error(target.err))
		return
	}
	next := target.track

	sec := e.openSecondaryLocked(next)
	if !e.fader.Begin(e.source, sec, e.volume, e.dsp.Window()) {
		if sec != nil {
			_ = sec.Close()
		}
		return
	}
	e.next = &next
	logger.Info("crossfade scheduled",
		zap.Float64("from", e.activeIDLocked()),
		zap.Float64("to", next.ID),
		zap.Duration("window", e.dsp.Window()))
	e.emitStateLocked()
}

// openSecondaryLocked opens and starts next at volume 0. It returns nil if
// the source cannot be opened; a source the host refuses to start is still
// returned so the ramp runs on volume alone.
func (e *Engine) openSecondaryLocked(next track.Track) crossfade.Secondary {
	handle := e.blobs.Create(next.Payload.Data, mimeType(next.Format))
	src, err := e.output.Open(handle, next.Payload.Data, next.Format)
	if err != nil {
		e.blobs.Revoke(handle)
		logger.Warn("crossfade: open next track, fading volume only", zap.Error(err))
		return nil
	}
	sec := &secondary{Source: src, blobs: e.blobs}
	src.SetVolume(0)
	if err := e.output.Route(src, nil); err != nil {
		logger.Warn("crossfade: route next track", zap.Error(err))
	}
	if err := src.Play(); err != nil {
		logger.Warn("crossfade: next track blocked, fading volume only", zap.Error(err))
	}
	return sec
}

// onCrossfadeStep is the fader's tick callback.
func (e *Engine) onCrossfadeStep(run uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.fader.Advance(run) {
		e.commitCrossfadeLocked()
	}
}

// commitCrossfadeLocked ends the ramp and makes the incoming track active,
// continuing from where the secondary got to.
func (e *Engine) commitCrossfadeLocked() {
	next := e.next
	e.next = nil

	var resumeAt time.Duration
	if sec, ok := e.fader.Secondary().(*secondary); ok {
		resumeAt = sec.Position()
	}

	// The primary goes first so Finish has no source to restore.
	e.teardownSourceLocked()
	e.fader.Finish()

	if next == nil {
		e.playing = false
		e.emitStateLocked()
		return
	}
	if err := e.activateLocked(*next, true, resumeAt); err != nil {
		logger.Warn("crossfade: activate next track", zap.Float64("track_id", next.ID), zap.Error(err))
	}
}

func (e *Engine) cancelCrossfadeLocked() {
	if !e.fader.Active() {
		return
	}
	e.fader.Cancel()
	e.next = nil
	logger.Debug("crossfade cancelled")
}
