package lastfm

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/playback"
)

// Scrobbler is the part of Client the reporter needs.
type Scrobbler interface {
	UpdateNowPlaying(track ScrobbleTrack) error
	Scrobble(track ScrobbleTrack) error
}

// Reporter follows the playback engine and reports to Last.fm: now
// playing when a track becomes active, a scrobble once it has played long
// enough. Failures are logged only.
type Reporter struct {
	client  Scrobbler
	service playback.Service
	sub     *playback.Subscription
	now     func() time.Time

	// state and sent are only touched by the loop goroutine.
	state *ScrobbleState
	sent  ScrobbleTrack

	done chan struct{}
	wg   sync.WaitGroup
}

// NewReporter subscribes to service and starts reporting.
func NewReporter(client Scrobbler, service playback.Service) *Reporter {
	r := &Reporter{
		client:  client,
		service: service,
		sub:     service.Subscribe(),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Close stops reporting.
func (r *Reporter) Close() {
	close(r.done)
	r.wg.Wait()
	r.service.Unsubscribe(r.sub)
}

func (r *Reporter) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case <-r.sub.Done:
			return
		case ev := <-r.sub.TrackChanged:
			r.trackChanged(ev)
		case ev := <-r.sub.MetadataChanged:
			r.metadataChanged(ev.Metadata)
		case ev := <-r.sub.StateChanged:
			r.progress(ev.Current)
		case <-r.sub.QueueChanged:
		case <-r.sub.ModeChanged:
		case <-r.sub.Error:
		}
	}
}

func (r *Reporter) trackChanged(ev playback.TrackChange) {
	if ev.Current == nil {
		r.state = nil
		return
	}
	if r.state != nil && r.state.TrackID == ev.Current.ID && !r.state.Scrobbled {
		return
	}
	r.state = &ScrobbleState{TrackID: ev.Current.ID, StartedAt: r.now()}
	r.sendNowPlaying(r.service.Metadata())
}

// metadataChanged resends now playing when resolution renamed the track.
func (r *Reporter) metadataChanged(m playback.Metadata) {
	if r.state == nil || m.TrackID != r.state.TrackID {
		return
	}
	if m.Title == r.sent.Track && m.Artist == r.sent.Artist {
		return
	}
	r.sendNowPlaying(m)
}

func (r *Reporter) sendNowPlaying(m playback.Metadata) {
	t := r.build(m, r.service.State().Duration)
	if err := r.client.UpdateNowPlaying(t); err != nil {
		logger.Warn(errmsg.Format(errmsg.OpLastfmNowPlaying, err), zap.Error(err))
		return
	}
	r.state.NowPlayingSent = true
	r.sent = t
}

// progress scrobbles the active track once it crosses the threshold.
func (r *Reporter) progress(st playback.State) {
	if r.state == nil || r.state.Scrobbled {
		return
	}
	threshold, ok := Threshold(st.Duration)
	if !ok || st.CurrentTime < threshold {
		return
	}
	r.state.Scrobbled = true

	t := r.build(r.service.Metadata(), st.Duration)
	if err := r.client.Scrobble(t); err != nil {
		logger.Warn(errmsg.Format(errmsg.OpLastfmScrobble, err), zap.Error(err))
		return
	}
	logger.Debug("scrobbled", zap.String("track", t.Track), zap.String("artist", t.Artist))
}

func (r *Reporter) build(m playback.Metadata, d time.Duration) ScrobbleTrack {
	t := ScrobbleTrack{
		Artist:   m.Artist,
		Track:    m.Title,
		Duration: d,
	}
	if r.state != nil {
		t.Timestamp = r.state.StartedAt
	}
	if cur := r.service.Current(); cur != nil {
		t.Album = cur.Folder
	}
	return t
}
