package playback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/accent"
	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/player"
	"github.com/llehouerou/ripple/internal/track"
)

var mimeTypes = map[string]string{
	"MP3":  "audio/mpeg",
	"FLAC": "audio/flac",
	"WAV":  "audio/wav",
	"OGG":  "audio/ogg",
	"OPUS": "audio/opus",
	"M4A":  "audio/mp4",
	"AIFF": "audio/aiff",
	"AIF":  "audio/aiff",
}

func mimeType(format string) string {
	if m, ok := mimeTypes[track.NormalizeFormat(format)]; ok {
		return m
	}
	return "application/octet-stream"
}

func (e *Engine) loader() track.Loader {
	if e.store == nil {
		return nil
	}
	return e.store
}

// SelectTrack makes ref the active track.
//
// The previous source is torn down before the new one is opened, so at most
// one source is ever bound. Metadata resolution starts in the background.
// With autoplay, the audio graph is built if needed and playback starts; a
// start refused by the host leaves the track paused.
func (e *Engine) SelectTrack(ctx context.Context, ref track.Ref, autoplay bool) error {
	t, err := track.Normalize(ctx, ref, e.loader(), e.now())
	if err != nil {
		e.emitError(ErrorEvent{Op: errmsg.OpPlaybackSelect, Err: err})
		return fmt.Errorf("select track: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.activateLocked(t, autoplay, 0)
}

// selectIndexLocked activates the entry at index of the active list. It may
// release e.mu while the payload loads.
func (e *Engine) selectIndexLocked(index int, autoplay bool) error {
	entry := e.queue.At(index)
	if entry == nil {
		return ErrEmptyQueue
	}
	id := entry.ID
	t, err := e.loadEntryLocked(*entry)
	if e.closed {
		return ErrClosed
	}
	if err != nil {
		e.emitError(ErrorEvent{Op: errmsg.OpPlaybackSelect, TrackID: id, Err: err})
		return fmt.Errorf("select track: %w", err)
	}
	return e.activateLocked(t, autoplay, 0)
}

// activateLocked binds t and makes it the active track, starting at startAt.
func (e *Engine) activateLocked(t track.Track, autoplay bool, startAt time.Duration) error {
	e.cancelCrossfadeLocked()

	prev := e.currentLocked()
	prevIndex := e.queue.CurrentIndex()

	e.teardownSourceLocked()
	if err := e.openLocked(t, startAt); err != nil {
		e.releaseCoverLocked()
		e.active = nil
		e.meta = Metadata{Accent: accent.Default}
		e.playing = false
		e.emitStateLocked()
		e.emitError(ErrorEvent{Op: errmsg.OpPlaybackSelect, TrackID: t.ID, Err: err})
		return err
	}

	e.generation++
	active := t
	e.active = &active
	e.releaseCoverLocked()
	e.meta = metadataFor(t)

	index := e.queue.Place(t)
	e.queue.PushRecent(t)
	e.persistLastPlayedLocked(t.ID)
	e.startResolveLocked(t, e.generation)

	logger.Info("track activated",
		zap.Float64("track_id", t.ID),
		zap.String("title", t.Title),
		zap.Int("index", index),
		zap.Bool("autoplay", autoplay))

	e.emitTrack(TrackChange{
		Previous:      prev,
		Current:       e.currentLocked(),
		PreviousIndex: prevIndex,
		Index:         index,
	})
	e.emitQueueLocked()
	e.emitMetadataLocked()

	if autoplay {
		e.ensureGraphLocked()
		e.startLocked()
	} else {
		e.playing = false
	}
	e.prefetchNextLocked()
	e.emitStateLocked()
	return nil
}

// openLocked registers t's payload, opens a source for it and routes it.
func (e *Engine) openLocked(t track.Track, startAt time.Duration) error {
	if !t.HasPayload() {
		return fmt.Errorf("track %v: %w", t.ID, track.ErrNoPayload)
	}
	handle := e.blobs.Create(t.Payload.Data, mimeType(t.Format))
	src, err := e.output.Open(handle, t.Payload.Data, t.Format)
	if err != nil {
		e.blobs.Revoke(handle)
		return fmt.Errorf("open %q: %w", t.Title, err)
	}
	src.SetVolume(e.volume)
	if err := e.routeLocked(src); err != nil {
		_ = src.Close()
		e.blobs.Revoke(handle)
		return err
	}
	if startAt > 0 {
		if err := src.Seek(startAt); err != nil {
			logger.Debug("seek new source", zap.Duration("position", startAt), zap.Error(err))
		}
	}

	e.source = src
	e.fader.SetPrimary(src)
	e.position = src.Position()
	e.duration = src.Duration()
	e.signalWake()
	return nil
}

// routeLocked sends src through the graph when one exists, else directly.
func (e *Engine) routeLocked(src player.Source) error {
	err := e.output.Route(src, e.graph)
	if err == nil {
		return nil
	}
	if e.graph == nil {
		return fmt.Errorf("route: %w", err)
	}
	logger.Warn("route through audio graph failed, routing directly", zap.Error(err))
	if err := e.output.Route(src, nil); err != nil {
		return fmt.Errorf("route: %w", err)
	}
	return nil
}

// teardownSourceLocked closes the bound source and revokes its handle.
func (e *Engine) teardownSourceLocked() {
	if e.source == nil {
		return
	}
	handle := e.source.Handle()
	if err := e.source.Close(); err != nil {
		logger.Debug("close source", zap.Error(err))
	}
	e.blobs.Revoke(handle)
	e.source = nil
	e.fader.SetPrimary(nil)
	e.position = 0
	e.duration = 0
}

func (e *Engine) releaseCoverLocked() {
	if blob.IsBlob(e.meta.CoverURL) {
		e.blobs.Revoke(e.meta.CoverURL)
	}
	e.meta.CoverURL = ""
}

// restartLocked reopens the active track from the start, keeping its
// metadata. A finished source cannot be rewound in place.
func (e *Engine) restartLocked(autoplay bool) error {
	if e.active == nil {
		return nil
	}
	e.teardownSourceLocked()
	if err := e.openLocked(*e.active, 0); err != nil {
		e.playing = false
		e.emitStateLocked()
		e.emitError(ErrorEvent{Op: errmsg.OpPlaybackStart, TrackID: e.active.ID, Err: err})
		return err
	}
	if autoplay {
		e.startLocked()
	}
	e.emitStateLocked()
	return nil
}

// ensureGraphLocked builds the audio graph once. A failure switches the
// engine to direct routing for the rest of the session.
func (e *Engine) ensureGraphLocked() {
	if e.graph != nil || e.graphFailed {
		return
	}
	g, err := e.output.NewGraph(e.eq)
	if err != nil {
		e.graphFailed = true
		logger.Warn(errmsg.Format(errmsg.OpGraphBuild, err)+", equalizer disabled", zap.Error(err))
		return
	}
	e.graph = g
	logger.Info("audio graph ready")
	if e.source != nil {
		if err := e.output.Route(e.source, g); err != nil {
			logger.Warn("route through audio graph failed", zap.Error(err))
		}
	}
}

// startLocked starts the bound source. A refusal leaves playback paused.
func (e *Engine) startLocked() {
	if e.source == nil {
		e.playing = false
		return
	}
	if err := e.source.Play(); err != nil {
		e.playing = false
		e.emitError(ErrorEvent{Op: errmsg.OpPlaybackStart, TrackID: e.activeIDLocked(), Err: err})
		return
	}
	e.playing = true
}

func (e *Engine) sourceEndedLocked() bool {
	if e.source == nil {
		return false
	}
	select {
	case <-e.source.Ended():
		return true
	default:
		return false
	}
}

func (e *Engine) currentLocked() *track.Track {
	if e.active == nil {
		return nil
	}
	t := e.active.WithoutPayload()
	return &t
}

func (e *Engine) activeIDLocked() float64 {
	if e.active == nil {
		return 0
	}
	return e.active.ID
}

func metadataFor(t track.Track) Metadata {
	m := Metadata{
		TrackID:       t.ID,
		Title:         t.Title,
		Artist:        t.Artist,
		Accent:        accent.Default,
		Lyrics:        t.Lyrics,
		HiRes:         track.IsHiRes(t.Format),
		TwentyFourBit: track.Is24Bit(t.Format),
	}
	if !blob.IsBlob(t.CoverURL) {
		m.CoverURL = t.CoverURL
	}
	return m
}

// signalWake tells Run to pick up the new source's end channel.
func (e *Engine) signalWake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}
