package playback

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/track"
)

// persistLoop runs store writes in submission order until persistCh is
// closed.
func (e *Engine) persistLoop() {
	defer close(e.persistDone)
	for op := range e.persistCh {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		op(ctx)
		cancel()
	}
}

// enqueueLocked schedules op on the persist goroutine. In-memory state stays
// authoritative, so a full backlog drops the write.
func (e *Engine) enqueueLocked(op func(context.Context)) {
	if e.closed {
		return
	}
	select {
	case e.persistCh <- op:
	default:
		logger.Warn("persist backlog full, dropping write")
	}
}

func (e *Engine) persistLastPlayedLocked(id float64) {
	if e.settings == nil {
		return
	}
	settings := e.settings
	e.enqueueLocked(func(context.Context) {
		if err := settings.SaveLastPlayedID(id); err != nil {
			logger.Warn(errmsg.Format(errmsg.OpStateSave, err), zap.Float64("track_id", id))
		}
	})
}

func (e *Engine) persistTrackLocked(t track.Track) {
	if e.store == nil {
		return
	}
	store := e.store
	e.enqueueLocked(func(ctx context.Context) {
		if err := store.Save(ctx, t); err != nil {
			logger.Warn(errmsg.Format(errmsg.OpLibrarySave, err), zap.Float64("track_id", t.ID))
		}
	})
}

func (e *Engine) persistDeleteLocked(id float64) {
	if e.store == nil {
		return
	}
	store := e.store
	e.enqueueLocked(func(ctx context.Context) {
		if err := store.Delete(ctx, id); err != nil {
			logger.Warn(errmsg.Format(errmsg.OpLibraryDelete, err), zap.Float64("track_id", id))
		}
	})
}

// persistRetagLocked rewrites title and artist of a stored record, keeping
// its payload.
func (e *Engine) persistRetagLocked(id float64, title, artist string) {
	if e.store == nil {
		return
	}
	store := e.store
	e.enqueueLocked(func(ctx context.Context) {
		t, err := store.Get(ctx, id)
		if errors.Is(err, track.ErrNotFound) {
			return
		}
		if err != nil {
			logger.Warn(errmsg.Format(errmsg.OpLibraryRetag, err), zap.Float64("track_id", id))
			return
		}
		t.Title = title
		t.Artist = artist
		if err := store.Save(ctx, *t); err != nil {
			logger.Warn(errmsg.Format(errmsg.OpLibraryRetag, err), zap.Float64("track_id", id))
		}
	})
}
