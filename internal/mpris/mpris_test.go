//go:build linux

package mpris

import (
	"context"
	"testing"
	"time"

	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/coverfile"
	"github.com/llehouerou/ripple/internal/playback"
	"github.com/llehouerou/ripple/internal/player"
	"github.com/llehouerou/ripple/internal/track"
)

func newPlayer(t *testing.T) (*playerAdapter, *playback.Engine) {
	t.Helper()
	blobs := blob.NewRegistry()
	e := playback.New(player.NewMockOutput(time.Minute), nil, nil, blobs)
	t.Cleanup(func() { _ = e.Close() })
	return &playerAdapter{service: e, art: coverfile.New(t.TempDir(), blobs)}, e
}

func TestPlayerAdapter_Status(t *testing.T) {
	p, e := newPlayer(t)

	status, err := p.PlaybackStatus()
	require.NoError(t, err)
	assert.Equal(t, types.PlaybackStatusStopped, status)

	require.NoError(t, e.SelectTrack(context.Background(), track.RawPayload{Name: "a.mp3", Data: []byte("x")}, true))
	status, _ = p.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusPlaying, status)

	require.NoError(t, p.PlayPause())
	status, _ = p.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusPaused, status)

	meta, err := p.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "a", meta.Title)
	assert.Equal(t, types.Microseconds(time.Minute.Microseconds()), meta.Length)
}

func TestPlayerAdapter_Navigation(t *testing.T) {
	p, e := newPlayer(t)

	ok, _ := p.CanGoNext()
	assert.False(t, ok)

	e.Enqueue(
		track.NewTransient("a.mp3", []byte("a"), time.UnixMilli(1)),
		track.NewTransient("b.mp3", []byte("b"), time.UnixMilli(2)),
	)
	require.NoError(t, p.Play())
	ok, _ = p.CanGoNext()
	assert.True(t, ok)

	require.NoError(t, p.Next())
	ok, _ = p.CanGoNext()
	assert.False(t, ok, "last entry")

	require.NoError(t, p.SetShuffle(true))
	ok, _ = p.CanGoNext()
	assert.True(t, ok)
}

func TestPlayerAdapter_LoopAndVolume(t *testing.T) {
	p, _ := newPlayer(t)

	require.NoError(t, p.SetLoopStatus(types.LoopStatusPlaylist))
	status, _ := p.LoopStatus()
	assert.Equal(t, types.LoopStatusTrack, status)

	require.NoError(t, p.SetLoopStatus(types.LoopStatusNone))
	status, _ = p.LoopStatus()
	assert.Equal(t, types.LoopStatusNone, status)

	require.NoError(t, p.SetVolume(1.7))
	v, _ := p.Volume()
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestFormatTrackID(t *testing.T) {
	assert.Equal(t, "/org/mpris/MediaPlayer2/Track/ff", formatTrackID(255))
}
