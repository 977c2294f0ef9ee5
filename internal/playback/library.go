package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/accent"
	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/track"
)

// ErrEmptyTitle is returned by Retag for a blank title.
var ErrEmptyTitle = errors.New("title must not be empty")

// Enqueue appends tracks to the user queue.
func (e *Engine) Enqueue(tracks ...track.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Enqueue(tracks...)
	e.emitQueueLocked()
}

// ClearQueue empties the user queue; navigation falls back to the library.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.ClearQueue()
	e.emitQueueLocked()
}

// Undo restores the queue before the last edit.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.queue.Undo() {
		return false
	}
	e.emitQueueLocked()
	return true
}

// Redo re-applies an undone queue edit.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.queue.Redo() {
		return false
	}
	e.emitQueueLocked()
	return true
}

// AddToLibrary turns tracks into library tracks and saves them.
// Known ids are skipped in the list but still written to the store.
func (e *Engine) AddToLibrary(tracks ...track.Track) {
	if len(tracks) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	stored := make([]track.Track, len(tracks))
	for i, t := range tracks {
		t.Transient = false
		if t.AddedAt.IsZero() {
			t.AddedAt = e.now()
		}
		stored[i] = t
	}
	added := e.queue.AddToLibrary(stored...)
	for _, t := range stored {
		e.queue.Update(t.ID, func(x *track.Track) { x.Transient = false })
		if e.active != nil && e.active.ID == t.ID {
			e.active.Transient = false
		}
		e.persistTrackLocked(t)
	}
	logger.Info("added to library", zap.Int("tracks", len(stored)), zap.Int("new", added))
	e.emitQueueLocked()
}

// RemoveFromLibrary deletes id from the store, the queue and recents. If it
// was the active track, playback stops and its handles are released.
func (e *Engine) RemoveFromLibrary(id float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	prev := e.currentLocked()
	prevIndex := e.queue.CurrentIndex()
	wasCurrent := e.queue.RemoveID(id)
	e.dropPrefetchLocked(id)

	if e.next != nil && e.next.ID == id {
		e.cancelCrossfadeLocked()
	}
	if wasCurrent || (e.active != nil && e.active.ID == id) {
		e.cancelCrossfadeLocked()
		e.teardownSourceLocked()
		e.releaseCoverLocked()
		e.active = nil
		e.playing = false
		e.meta = Metadata{Accent: accent.Default}
		e.emitTrack(TrackChange{Previous: prev, PreviousIndex: prevIndex, Index: e.queue.CurrentIndex()})
		e.emitMetadataLocked()
	}

	e.persistDeleteLocked(id)
	logger.Info("removed from library", zap.Float64("track_id", id))
	e.emitQueueLocked()
	e.emitStateLocked()
}

// Retag renames a track everywhere it appears and saves the change.
// An empty artist becomes "Unknown Artist".
func (e *Engine) Retag(id float64, title, artist string) error {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	if title == "" {
		return ErrEmptyTitle
	}
	if artist == "" {
		artist = track.UnknownArtist
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropPrefetchLocked(id)
	e.queue.Update(id, func(t *track.Track) {
		t.Title = title
		t.Artist = artist
	})
	if e.active != nil && e.active.ID == id {
		e.active.Title = title
		e.active.Artist = artist
		e.meta.Title = title
		e.meta.Artist = artist
		e.emitMetadataLocked()
	}
	e.persistRetagLocked(id, title, artist)
	e.emitQueueLocked()
	return nil
}

// LoadLibrary replaces the library list with the store's content.
func (e *Engine) LoadLibrary(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	tracks, err := e.store.GetAll(ctx)
	if err != nil {
		e.emitError(ErrorEvent{Op: errmsg.OpLibraryLoad, Err: err})
		return fmt.Errorf("load library: %w", err)
	}

	track.ReserveIDs(tracks)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.SetLibrary(tracks)
	logger.Info("library loaded", zap.Int("tracks", len(tracks)))
	e.emitQueueLocked()
	return nil
}

// Resume selects the last played track without starting playback. A track
// that no longer exists is skipped silently.
func (e *Engine) Resume(ctx context.Context) error {
	if e.settings == nil {
		return nil
	}
	id, ok, err := e.settings.LastPlayedID()
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if !ok {
		return nil
	}

	t, err := track.Normalize(ctx, track.LibraryReference{ID: id}, e.loader(), e.now())
	if errors.Is(err, track.ErrNotFound) || errors.Is(err, track.ErrNoPayload) {
		logger.Info("last played track unavailable", zap.Float64("track_id", id), zap.Error(err))
		return nil
	}
	if err != nil {
		e.emitError(ErrorEvent{Op: errmsg.OpPlaybackResume, TrackID: id, Err: err})
		return fmt.Errorf("resume: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.activateLocked(t, false, 0)
}
