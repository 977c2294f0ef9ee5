//go:build linux

package mpris

import (
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/coverfile"
	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/playback"
	"github.com/llehouerou/ripple/internal/player"
)

// Adapter connects the playback engine to MPRIS over D-Bus.
type Adapter struct {
	service playback.Service
	server  *server.Server
	sub     *playback.Subscription
	art     *coverfile.Cache
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates and starts a new MPRIS adapter. Blob covers are exported to
// a per-user cache directory so desktop clients can show them.
func New(service playback.Service, blobs *blob.Registry) (*Adapter, error) {
	a := &Adapter{
		service: service,
		art:     coverfile.New(coverfile.DefaultDir("mpris"), blobs),
		done:    make(chan struct{}),
	}

	root := &rootAdapter{}
	pa := &playerAdapter{service: service, art: a.art}

	a.server = server.NewServer("ripple", root, pa)
	a.sub = service.Subscribe()
	a.art.Update(service.Metadata().CoverURL)

	go func() {
		if err := a.server.Listen(); err != nil {
			logger.Warn(errmsg.Format(errmsg.OpMPRIS, err), zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go a.follow()

	return a, nil
}

// follow keeps the exported cover in sync with the active track.
func (a *Adapter) follow() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case <-a.sub.Done:
			return
		case ev := <-a.sub.MetadataChanged:
			a.art.Update(ev.Metadata.CoverURL)
		case <-a.sub.TrackChanged:
			a.art.Update(a.service.Metadata().CoverURL)
		case <-a.sub.StateChanged:
		case <-a.sub.QueueChanged:
		case <-a.sub.ModeChanged:
		case <-a.sub.Error:
		}
	}
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	close(a.done)
	a.wg.Wait()
	a.service.Unsubscribe(a.sub)
	a.art.Close()
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil
}

func (r *rootAdapter) Quit() error {
	return nil
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Ripple", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and optional interfaces.
type playerAdapter struct {
	service playback.Service
	art     *coverfile.Cache
}

func (p *playerAdapter) Next() error {
	return p.service.Next()
}

func (p *playerAdapter) Previous() error {
	return p.service.Previous()
}

func (p *playerAdapter) Pause() error {
	p.service.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	return p.service.TogglePlay()
}

// Stop pauses and rewinds; the engine keeps its source bound.
func (p *playerAdapter) Stop() error {
	p.service.Pause()
	return p.service.Seek(0)
}

func (p *playerAdapter) Play() error {
	return p.service.Play()
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	pos := p.service.State().CurrentTime + time.Duration(offset)*time.Microsecond
	return p.service.Seek(pos)
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.service.Seek(time.Duration(position) * time.Microsecond)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.service.State().Status(p.service.Current() != nil) {
	case player.Playing:
		return types.PlaybackStatusPlaying, nil
	case player.Paused:
		return types.PlaybackStatusPaused, nil
	case player.Stopped:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	cur := p.service.Current()
	if cur == nil {
		return types.Metadata{}, nil
	}
	m := p.service.Metadata()

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(cur.ID)),
		Length:  types.Microseconds(p.service.State().Duration.Microseconds()),
		Title:   m.Title,
		Artist:  []string{m.Artist},
		Album:   cur.Folder,
		ArtUrl:  p.art.URL(),
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.service.State().Volume, nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	p.service.SetVolume(v)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.State().CurrentTime.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return canGoNext(p.service), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.service.Current() != nil, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return activeLen(p.service) > 0 || p.service.Current() != nil, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.service.State().Duration > 0, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.service.State().IsRepeat {
		return types.LoopStatusTrack, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// Only single-track repeat exists, so Playlist maps to it too.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	switch status {
	case types.LoopStatusNone:
		p.service.SetRepeat(false)
	case types.LoopStatusTrack, types.LoopStatusPlaylist:
		p.service.SetRepeat(true)
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.service.State().IsShuffle, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	p.service.SetShuffle(shuffle)
	return nil
}

// activeLen is the length of the list navigation walks: the queue when it
// has entries, else the library.
func activeLen(s playback.Service) int {
	if n := len(s.Queue()); n > 0 {
		return n
	}
	return len(s.Library())
}

func canGoNext(s playback.Service) bool {
	n := activeLen(s)
	if s.State().IsShuffle {
		return n > 1
	}
	i := s.CurrentIndex()
	return i >= 0 && i+1 < n
}

func formatTrackID(id float64) string {
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", uint64(id))
}
