package lastfm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/ripple/internal/playback"
	"github.com/llehouerou/ripple/internal/player"
	"github.com/llehouerou/ripple/internal/track"
)

type fakeScrobbler struct {
	mu         sync.Mutex
	nowPlaying []ScrobbleTrack
	scrobbles  []ScrobbleTrack
	err        error
}

func (f *fakeScrobbler) UpdateNowPlaying(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, t)
	return f.err
}

func (f *fakeScrobbler) Scrobble(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbles = append(f.scrobbles, t)
	return f.err
}

func (f *fakeScrobbler) firstNowPlaying() ScrobbleTrack {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nowPlaying[0]
}

func (f *fakeScrobbler) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.nowPlaying), len(f.scrobbles)
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     time.Duration
		ok       bool
	}{
		{"too short", 20 * time.Second, 0, false},
		{"exactly thirty seconds", 30 * time.Second, 15 * time.Second, true},
		{"half of a normal track", 3 * time.Minute, 90 * time.Second, true},
		{"capped at four minutes", 20 * time.Minute, 4 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Threshold(tt.duration)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReporter_NowPlayingAndScrobble(t *testing.T) {
	out := player.NewMockOutput(3 * time.Minute)
	e := playback.New(out, nil, nil, nil)
	t.Cleanup(func() { _ = e.Close() })

	fake := &fakeScrobbler{}
	r := NewReporter(fake, e)
	t.Cleanup(r.Close)

	ref := track.RawPayload{Name: "Song.mp3", Data: []byte("x")}
	require.NoError(t, e.SelectTrack(context.Background(), ref, true))

	require.Eventually(t, func() bool {
		n, _ := fake.counts()
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)
	np := fake.firstNowPlaying()
	assert.Equal(t, "Song", np.Track)
	assert.Equal(t, track.UnknownArtist, np.Artist)

	out.Last().SetPosition(80 * time.Second)
	e.Tick()
	time.Sleep(20 * time.Millisecond)
	_, s := fake.counts()
	assert.Zero(t, s, "below half the track")

	out.Last().SetPosition(95 * time.Second)
	e.Tick()
	require.Eventually(t, func() bool {
		_, s := fake.counts()
		return s == 1
	}, 2*time.Second, 5*time.Millisecond)

	out.Last().SetPosition(100 * time.Second)
	e.Tick()
	time.Sleep(20 * time.Millisecond)
	_, s = fake.counts()
	assert.Equal(t, 1, s, "scrobbled once per play")
}

func TestReporter_FailuresAreNotFatal(t *testing.T) {
	e := playback.New(player.NewMockOutput(time.Minute), nil, nil, nil)
	t.Cleanup(func() { _ = e.Close() })

	fake := &fakeScrobbler{err: errors.New("offline")}
	r := NewReporter(fake, e)
	t.Cleanup(r.Close)

	require.NoError(t, e.SelectTrack(context.Background(), track.RawPayload{Name: "a.mp3", Data: []byte("x")}, true))
	require.Eventually(t, func() bool {
		n, _ := fake.counts()
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAuthServer_Callback(t *testing.T) {
	as, err := StartAuthServer("127.0.0.1:0")
	require.NoError(t, err)
	defer as.Shutdown()

	resp, err := http.Get(as.CallbackURL() + "?token=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case token := <-as.TokenChan():
		assert.Equal(t, "abc", token)
	case <-time.After(time.Second):
		t.Fatal("token not delivered")
	}
}

func TestClient_AuthURL(t *testing.T) {
	c := New("key", "secret")
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, "https://www.last.fm/api/auth/?api_key=key&token=tok", c.GetAuthURL("tok", ""))
	assert.ErrorIs(t, c.UpdateNowPlaying(ScrobbleTrack{}), ErrNotAuthenticated)

	c.SetSessionKey("s")
	assert.True(t, c.IsAuthenticated())
}
