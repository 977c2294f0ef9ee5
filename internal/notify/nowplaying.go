package notify

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/coverfile"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/playback"
)

// DefaultIcon is the freedesktop icon name used without album art.
const DefaultIcon = "audio-x-generic"

// Options controls now-playing notifications.
type Options struct {
	ShowAlbumArt bool
	Timeout      int32 // ms, -1 = server default
}

// NowPlaying shows a card whenever a track becomes active and updates it in
// place when resolution improves its metadata.
type NowPlaying struct {
	display  Display
	service  playback.Service
	sub      *playback.Subscription
	art      *coverfile.Cache
	opts     Options

	// Only touched by the loop goroutine.
	shown bool
	sent  playback.Metadata

	done chan struct{}
	wg   sync.WaitGroup
}

// NewNowPlaying subscribes to service and starts notifying.
func NewNowPlaying(display Display, service playback.Service, blobs *blob.Registry, opts Options) *NowPlaying {
	n := &NowPlaying{
		display:  display,
		service:  service,
		sub:      service.Subscribe(),
		art:      coverfile.New(coverfile.DefaultDir("notify"), blobs),
		opts:     opts,
		done:     make(chan struct{}),
	}
	n.wg.Add(1)
	go n.loop()
	return n
}

// Close stops notifying and hides the card.
func (n *NowPlaying) Close() {
	close(n.done)
	n.wg.Wait()
	n.service.Unsubscribe(n.sub)
	if n.shown {
		if err := n.display.Hide(); err != nil {
			logger.Debug("notify: hide", zap.Error(err))
		}
	}
	n.art.Close()
}

func (n *NowPlaying) loop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case <-n.sub.Done:
			return
		case ev := <-n.sub.MetadataChanged:
			n.update(ev.Metadata)
		case <-n.sub.TrackChanged:
		case <-n.sub.StateChanged:
		case <-n.sub.QueueChanged:
		case <-n.sub.ModeChanged:
		case <-n.sub.Error:
		}
	}
}

func (n *NowPlaying) update(m playback.Metadata) {
	if m.Title == "" {
		return
	}
	if m.TrackID == n.sent.TrackID && m.Title == n.sent.Title &&
		m.Artist == n.sent.Artist && m.CoverURL == n.sent.CoverURL {
		return
	}

	card := Card{
		Title:   m.Title,
		Body:    n.body(m),
		Icon:    DefaultIcon,
		Timeout: n.opts.Timeout,
	}
	if n.opts.ShowAlbumArt {
		n.art.Update(m.CoverURL)
		if path := n.art.Path(); path != "" {
			card.Icon = path
		}
	}

	if err := n.display.Show(card); err != nil {
		logger.Debug("notify: now playing", zap.Error(err))
		return
	}
	n.shown = true
	n.sent = m
}

// body is "Artist · Folder", or just the artist for tracks without a folder.
func (n *NowPlaying) body(m playback.Metadata) string {
	parts := []string{m.Artist}
	if cur := n.service.Current(); cur != nil && cur.ID == m.TrackID && cur.Folder != "" {
		parts = append(parts, cur.Folder)
	}
	return strings.Join(parts, " · ")
}
