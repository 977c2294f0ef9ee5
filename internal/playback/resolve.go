package playback

import (
	"context"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/resolver"
	"github.com/llehouerou/ripple/internal/track"
)

// startResolveLocked resolves t's metadata in the background. Each stage's
// result is applied as it arrives, tagged with the track id and activation
// generation it was started for.
func (e *Engine) startResolveLocked(t track.Track, gen uint64) {
	if e.resolver == nil {
		return
	}
	req := resolver.Request{
		TrackID:        t.ID,
		Format:         t.Format,
		FallbackTitle:  t.Title,
		FallbackArtist: t.Artist,
		Lyrics:         t.Lyrics,
		Duration:       e.duration,
	}
	if t.Payload != nil {
		req.Payload = t.Payload.Data
	}

	r := e.resolver
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.ctx, resolveTimeout)
		defer cancel()

		_, err := r.Resolve(ctx, req, func(res *resolver.Result) {
			e.applyResolution(req.TrackID, gen, res)
		})
		if err != nil {
			logger.Warn("metadata resolution incomplete", zap.Float64("track_id", req.TrackID), zap.Error(err))
		}
	}()
}

// applyResolution merges res into the active metadata if the track it was
// started for is still active. Stale results are dropped along with their
// cover handle.
func (e *Engine) applyResolution(id float64, gen uint64, res *resolver.Result) {
	if res == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.active == nil || e.active.ID != id || e.generation != gen {
		e.blobs.Revoke(res.CoverURL)
		logger.Debug("discarding stale metadata", zap.Float64("track_id", id), zap.Uint64("generation", gen))
		return
	}

	meta := e.meta
	if res.Title != "" {
		meta.Title = res.Title
	}
	if res.Artist != "" {
		meta.Artist = res.Artist
	}
	if res.CoverURL != "" {
		if blob.IsBlob(meta.CoverURL) && meta.CoverURL != res.CoverURL {
			e.blobs.Revoke(meta.CoverURL)
		}
		meta.CoverURL = res.CoverURL
		meta.ArtworkSource = res.ArtworkSource
		meta.Accent = res.Accent
	}
	if res.Lyrics != "" {
		meta.Lyrics = res.Lyrics
	}
	e.meta = meta
	e.emitMetadataLocked()
}
