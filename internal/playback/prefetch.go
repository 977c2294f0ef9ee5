package playback

import (
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/track"
)

// prefetch is a payload load running outside the engine lock. track and err
// are valid once done is closed.
type prefetch struct {
	id    float64
	index int
	gen   uint64
	done  chan struct{}
	track track.Track
	err   error
}

func (p *prefetch) ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// prefetchLocked starts loading the entry at index unless a load for it is
// already running or finished. Entries that carry their payload resolve at
// once.
func (e *Engine) prefetchLocked(index int) *prefetch {
	entry := e.queue.At(index)
	if entry == nil {
		return nil
	}
	if p := e.prefetch; p != nil && p.id == entry.ID {
		p.index, p.gen = index, e.generation
		return p
	}

	p := &prefetch{id: entry.ID, index: index, gen: e.generation, done: make(chan struct{})}
	e.prefetch = p
	ref := track.QueueEntry{Track: *entry}
	if entry.HasPayload() || entry.Transient {
		p.track, p.err = track.Normalize(e.ctx, ref, nil, e.now())
		close(p.done)
		return p
	}

	ctx, loader, now := e.ctx, e.loader(), e.now()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(p.done)
		p.track, p.err = track.Normalize(ctx, ref, loader, now)
		if p.err != nil {
			logger.Debug("prefetch payload", zap.Float64("track_id", ref.Track.ID), zap.Error(p.err))
		}
	}()
	return p
}

// prefetchNextLocked warms the payload of the entry after the active one.
// Shuffle draws its target when the crossfade window opens instead.
func (e *Engine) prefetchNextLocked() {
	e.prefetch = nil
	if e.shuffle || e.closed {
		return
	}
	if index, ok := e.pickNextLocked(); ok {
		e.prefetchLocked(index)
	}
}

// fadeTargetLocked returns the load for the track a crossfade would move to,
// starting one when the pending load no longer matches the queue.
func (e *Engine) fadeTargetLocked() *prefetch {
	if p := e.prefetch; p != nil && p.gen == e.generation && e.stillNextLocked(p) {
		return p
	}
	index, found := e.pickNextLocked()
	if !found {
		return nil
	}
	return e.prefetchLocked(index)
}

func (e *Engine) stillNextLocked(p *prefetch) bool {
	entry := e.queue.At(p.index)
	if entry == nil || entry.ID != p.id {
		return false
	}
	return e.shuffle || p.index == e.queue.CurrentIndex()+1
}

// loadEntryLocked returns entry with its payload. A store read happens with
// e.mu released, reusing a matching prefetch when there is one; callers
// must recheck engine state afterwards.
func (e *Engine) loadEntryLocked(entry track.Track) (track.Track, error) {
	ref := track.QueueEntry{Track: entry}
	if entry.HasPayload() || entry.Transient {
		return track.Normalize(e.ctx, ref, nil, e.now())
	}
	p := e.prefetch
	if p != nil && p.id != entry.ID {
		p = nil
	}
	ctx, loader, now := e.ctx, e.loader(), e.now()

	e.mu.Unlock()
	defer e.mu.Lock()
	if p != nil {
		<-p.done
		if p.err == nil {
			return p.track, nil
		}
	}
	return track.Normalize(ctx, ref, loader, now)
}

// dropPrefetchLocked forgets a load for id whose record changed or left the
// library.
func (e *Engine) dropPrefetchLocked(id float64) {
	if e.prefetch != nil && e.prefetch.id == id {
		e.prefetch = nil
	}
}
