package playback

import (
	"context"
	"time"
)

// Tick samples the source position and evaluates the crossfade guard.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.source == nil {
		return
	}
	e.position = e.source.Position()
	if d := e.source.Duration(); d > 0 {
		e.duration = d
	}
	e.maybeCrossfadeLocked()
	e.emitStateLocked()
}

// Run drives Tick every 250ms and dispatches the end of each track until
// ctx is done or the engine is closed.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	// A finished source stays bound after the end of the list, so its
	// closed channel is only handled once.
	var handled <-chan struct{}
	for {
		ended := e.endedChan()
		if ended == handled {
			ended = nil
		}
		select {
		case <-ctx.Done():
			return
		case <-e.ctx.Done():
			return
		case <-e.wake:
		case <-ticker.C:
			e.Tick()
		case <-ended:
			handled = ended
			e.handleEnded(ended)
		}
	}
}

func (e *Engine) endedChan() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == nil {
		return nil
	}
	return e.source.Ended()
}

// handleEnded reacts to ended only if it belongs to the bound source.
func (e *Engine) handleEnded(ended <-chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.source == nil || e.source.Ended() != ended {
		return
	}
	_ = e.endedLocked()
}
