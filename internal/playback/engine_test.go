package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/dsp"
	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/library"
	"github.com/llehouerou/ripple/internal/player"
	"github.com/llehouerou/ripple/internal/state"
	"github.com/llehouerou/ripple/internal/track"
)

const testDuration = 3 * time.Minute

func song(id float64, title string) track.Track {
	return track.Track{
		ID:      id,
		Title:   title,
		Artist:  "Artist",
		Format:  "MP3",
		Payload: &track.Payload{Name: title + ".mp3", Data: []byte("audio " + title)},
		AddedAt: time.UnixMilli(int64(id)),
	}
}

type fixture struct {
	e     *Engine
	out   *player.MockOutput
	store *library.Mock
	st    *state.Mock
	blobs *blob.Registry
}

func newFixture(t *testing.T, lib []track.Track, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		out:   player.NewMockOutput(testDuration),
		store: library.NewMock(lib...),
		st:    state.NewMock(),
		blobs: blob.NewRegistry(),
	}
	f.e = New(f.out, f.store, f.st, f.blobs, opts...)
	t.Cleanup(func() { _ = f.e.Close() })
	if len(lib) > 0 {
		require.NoError(t, f.e.LoadLibrary(context.Background()))
	}
	return f
}

// selectAt activates entry index of the active list.
func (f *fixture) selectAt(t *testing.T, index int, autoplay bool) {
	t.Helper()
	entry := f.e.queue.At(index)
	require.NotNil(t, entry)
	require.NoError(t, f.e.SelectTrack(context.Background(), track.QueueEntry{Track: *entry}, autoplay))
}

// flush waits until every write queued so far reached the stores.
func flush(t *testing.T, e *Engine) {
	t.Helper()
	done := make(chan struct{})
	e.mu.Lock()
	e.enqueueLocked(func(context.Context) { close(done) })
	e.mu.Unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("persist queue did not drain")
	}
}

func abc() []track.Track {
	return []track.Track{song(1, "A"), song(2, "B"), song(3, "C")}
}

func TestSelectTrack_RawPayload(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	f := newFixture(t, nil, WithClock(func() time.Time { return now }))

	err := f.e.SelectTrack(context.Background(), track.RawPayload{Name: "dir/song.flac", Data: []byte("x")}, true)
	require.NoError(t, err)

	cur := f.e.Current()
	require.NotNil(t, cur)
	assert.GreaterOrEqual(t, cur.ID, float64(1700000000123))
	assert.Equal(t, "song", cur.Title)
	assert.Nil(t, cur.Payload, "Current must not expose the payload")
	assert.True(t, f.e.HiRes())
	assert.True(t, f.e.TwentyFourBit())

	st := f.e.State()
	assert.True(t, st.IsPlaying)
	assert.Equal(t, testDuration, st.Duration)

	assert.Equal(t, 0, f.e.CurrentIndex())
	assert.Len(t, f.e.Queue(), 1, "outsider becomes the only queue entry")
	assert.Len(t, f.e.Recents(), 1)
}

func TestSelectTrack_AtMostOneSource(t *testing.T) {
	f := newFixture(t, abc())

	f.selectAt(t, 0, true)
	first := f.out.Last()
	f.selectAt(t, 1, true)
	second := f.out.Last()

	require.Len(t, f.out.Sources(), 2)
	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())
	_, ok := f.blobs.Get(first.Handle())
	assert.False(t, ok, "previous source handle revoked")
	_, ok = f.blobs.Get(second.Handle())
	assert.True(t, ok)
	assert.Equal(t, 1, f.blobs.Len())
}

func TestSelectTrack_Errors(t *testing.T) {
	f := newFixture(t, nil)
	sub := f.e.Subscribe()

	err := f.e.SelectTrack(context.Background(), track.LibraryReference{ID: 42}, true)
	require.ErrorIs(t, err, track.ErrNotFound)

	select {
	case ev := <-sub.Error:
		assert.Equal(t, errmsg.OpPlaybackSelect, ev.Op)
	default:
		t.Fatal("expected an error event")
	}

	f.out.SetOpenError(errors.New("corrupt"))
	err = f.e.SelectTrack(context.Background(), track.QueueEntry{Track: song(1, "A")}, true)
	require.Error(t, err)
	assert.Nil(t, f.e.Current())
	assert.Equal(t, 0, f.blobs.Len(), "failed open leaves no handle")
	assert.False(t, f.e.State().IsPlaying)
}

func TestSelectTrack_NoAutoplay(t *testing.T) {
	f := newFixture(t, abc())

	f.selectAt(t, 1, false)

	assert.False(t, f.e.State().IsPlaying)
	assert.Equal(t, player.Paused, f.out.Last().State())
	assert.Equal(t, 0, f.out.GraphCalls(), "graph waits for a user gesture")

	flush(t, f.e)
	id, ok, err := f.st.LastPlayedID()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(2), id)
}

func TestSelectTrack_BlockedAutoplay(t *testing.T) {
	f := newFixture(t, abc())
	sub := f.e.Subscribe()
	f.out.SetPlayError(player.ErrPlaybackBlocked)

	f.selectAt(t, 0, true)

	assert.False(t, f.e.State().IsPlaying)
	require.NotNil(t, f.e.Current())
	select {
	case ev := <-sub.Error:
		assert.Equal(t, errmsg.OpPlaybackStart, ev.Op)
		assert.ErrorIs(t, ev.Err, player.ErrPlaybackBlocked)
	default:
		t.Fatal("expected an error event")
	}
}

func TestGraph_BuiltOnceOnFirstPlay(t *testing.T) {
	f := newFixture(t, abc())

	f.selectAt(t, 0, false)
	require.Equal(t, []bool{true}, directRoutes(f.out))

	require.NoError(t, f.e.Play())
	assert.Equal(t, 1, f.out.GraphCalls())
	assert.True(t, f.e.graphActive())
	assert.Equal(t, []bool{true, false}, directRoutes(f.out), "bound source moves into the graph")

	require.NoError(t, f.e.Next())
	assert.Equal(t, 1, f.out.GraphCalls())
	assert.Equal(t, []bool{true, false, false}, directRoutes(f.out))
}

func TestGraph_DegradedMode(t *testing.T) {
	f := newFixture(t, abc())
	f.out.SetGraphError(errors.New("no audio processing"))

	f.selectAt(t, 0, true)
	require.NoError(t, f.e.Next())

	assert.True(t, f.e.State().IsPlaying, "playback continues without the graph")
	assert.Equal(t, 1, f.out.GraphCalls(), "construction is not retried")
	assert.Equal(t, []bool{true, true}, directRoutes(f.out))
	assert.Nil(t, f.e.Spectrum())

	require.NoError(t, f.e.SetBandGain(3, 6))
	assert.InDelta(t, 6, f.e.EQ().Gains[3], 1e-9, "EQ state is kept for later")
}

func directRoutes(out *player.MockOutput) []bool {
	var direct []bool
	for _, g := range out.Routes() {
		direct = append(direct, g == nil)
	}
	return direct
}

func TestNext_StopsAtLastIndex(t *testing.T) {
	f := newFixture(t, abc())
	f.selectAt(t, 0, true)
	require.Equal(t, 0, f.e.CurrentIndex())

	require.NoError(t, f.e.Next())
	assert.Equal(t, 1, f.e.CurrentIndex())
	assert.Equal(t, "B", f.e.Current().Title)

	require.NoError(t, f.e.Next())
	require.NoError(t, f.e.Next())
	assert.Equal(t, 2, f.e.CurrentIndex())
	assert.Equal(t, "C", f.e.Current().Title)

	require.NoError(t, f.e.Next())
	assert.Equal(t, 2, f.e.CurrentIndex())
	assert.False(t, f.e.State().IsPlaying)
}

func TestNextPrevious_EmptyIsNoop(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.e.Next())
	require.NoError(t, f.e.Previous())

	assert.False(t, f.e.State().IsPlaying)
	assert.Equal(t, -1, f.e.CurrentIndex())
	assert.Empty(t, f.out.Sources())
	assert.ErrorIs(t, f.e.Play(), ErrEmptyQueue)
}

func TestShuffle_NeverRepeatsCurrent(t *testing.T) {
	for n := 2; n <= 5; n++ {
		var lib []track.Track
		for i := range n {
			lib = append(lib, song(float64(i+1), string(rune('A'+i))))
		}
		f := newFixture(t, lib)
		f.e.SetShuffle(true)
		f.selectAt(t, 0, true)

		for range 50 {
			before := f.e.CurrentIndex()
			require.NoError(t, f.e.Next())
			assert.NotEqual(t, before, f.e.CurrentIndex(), "n=%d", n)
		}
	}
}

func TestShuffle_RerollSkipsCurrent(t *testing.T) {
	var draws []int
	intn := func(n int) int {
		draws = append(draws, n)
		return 0
	}
	f := newFixture(t, abc(), WithRand(intn))
	f.selectAt(t, 0, true)
	f.e.SetShuffle(true)

	require.NoError(t, f.e.Next())

	assert.Equal(t, []int{3, 2}, draws, "one reroll over the other entries")
	assert.Equal(t, 1, f.e.CurrentIndex())
}

func TestShuffle_SingleTrackReselects(t *testing.T) {
	f := newFixture(t, []track.Track{song(1, "A")})
	f.e.SetShuffle(true)
	f.selectAt(t, 0, true)

	require.NoError(t, f.e.Next())

	assert.Equal(t, 0, f.e.CurrentIndex())
	assert.Len(t, f.out.Sources(), 2, "the only track is selected again")
	assert.True(t, f.e.State().IsPlaying)
}

func TestPrevious(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		elapsed   time.Duration
		wantIndex int
		wantSeek  bool
	}{
		{"rewinds after three seconds", 1, 10 * time.Second, 1, true},
		{"goes back within three seconds", 1, 2 * time.Second, 0, false},
		{"exactly three seconds goes back", 2, 3 * time.Second, 1, false},
		{"first entry rewinds", 0, time.Second, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, abc())
			f.selectAt(t, tt.start, true)
			src := f.out.Last()
			src.SetPosition(tt.elapsed)

			require.NoError(t, f.e.Previous())

			assert.Equal(t, tt.wantIndex, f.e.CurrentIndex())
			if tt.wantSeek {
				assert.Same(t, src, f.out.Last(), "no new source")
				assert.Equal(t, []time.Duration{0}, src.Seeks())
				assert.Zero(t, f.e.State().CurrentTime)
			} else {
				assert.NotSame(t, src, f.out.Last())
			}
		})
	}
}

func TestOnTrackEnded(t *testing.T) {
	t.Run("advances", func(t *testing.T) {
		f := newFixture(t, abc())
		f.selectAt(t, 0, true)

		require.NoError(t, f.e.OnTrackEnded())

		assert.Equal(t, 1, f.e.CurrentIndex())
		assert.True(t, f.e.State().IsPlaying)
	})

	t.Run("repeat restarts the same track", func(t *testing.T) {
		f := newFixture(t, abc())
		f.e.SetRepeat(true)
		f.selectAt(t, 1, true)
		first := f.out.Last()
		first.SetPosition(testDuration)
		first.SimulateEnded()

		require.NoError(t, f.e.OnTrackEnded())

		assert.Equal(t, 1, f.e.CurrentIndex())
		assert.NotSame(t, first, f.out.Last())
		assert.True(t, first.IsClosed())
		assert.Equal(t, player.Playing, f.out.Last().State())
		assert.Zero(t, f.e.State().CurrentTime)
		assert.Equal(t, 1, f.blobs.Len())
	})
}

func TestRun_DispatchesEnded(t *testing.T) {
	f := newFixture(t, abc())
	f.selectAt(t, 0, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	f.out.Last().SimulateEnded()
	require.Eventually(t, func() bool { return f.e.CurrentIndex() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.out.Last().SimulateEnded()
	require.Eventually(t, func() bool { return f.e.CurrentIndex() == 2 }, 2*time.Second, 10*time.Millisecond)

	f.out.Last().SimulateEnded()
	require.Eventually(t, func() bool { return !f.e.State().IsPlaying }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, f.e.CurrentIndex())
}

func TestSeek(t *testing.T) {
	f := newFixture(t, abc())
	f.selectAt(t, 0, true)
	src := f.out.Last()

	require.NoError(t, f.e.Seek(30*time.Second))
	require.NoError(t, f.e.Seek(time.Hour))
	require.NoError(t, f.e.Seek(-time.Second))

	assert.Equal(t, []time.Duration{30 * time.Second, testDuration, 0}, src.Seeks())
}

func TestSeek_UnknownDurationIsNoop(t *testing.T) {
	f := newFixture(t, abc())
	f.out.SetDuration(0)
	f.selectAt(t, 0, true)

	require.NoError(t, f.e.Seek(30*time.Second))

	assert.Empty(t, f.out.Last().Seeks())
}

func TestSetVolume(t *testing.T) {
	f := newFixture(t, abc())
	f.selectAt(t, 0, true)

	f.e.SetVolume(0.3)
	assert.InDelta(t, 0.3, f.out.Last().Volume(), 1e-9)

	f.e.SetVolume(7)
	assert.InDelta(t, 1, f.e.State().Volume, 1e-9)

	f.e.SetVolume(-1)
	assert.Zero(t, f.e.State().Volume)
}

func TestModes_NotCarriedAcrossRestart(t *testing.T) {
	f := newFixture(t, nil)
	sub := f.e.Subscribe()

	f.e.SetShuffle(true)
	f.e.SetRepeat(true)
	f.e.SetVolume(0.5)
	flush(t, f.e)

	first := <-sub.ModeChanged
	assert.True(t, first.Shuffle)

	e2 := New(player.NewMockOutput(testDuration), nil, f.st, nil)
	defer e2.Close()
	st := e2.State()
	assert.False(t, st.IsShuffle)
	assert.False(t, st.IsRepeat)
	assert.InDelta(t, 1.0, st.Volume, 1e-9)
}

func TestTogglePlay(t *testing.T) {
	f := newFixture(t, abc())

	require.NoError(t, f.e.TogglePlay())
	assert.True(t, f.e.State().IsPlaying, "nothing bound starts the first entry")
	assert.Equal(t, 0, f.e.CurrentIndex())

	require.NoError(t, f.e.TogglePlay())
	assert.False(t, f.e.State().IsPlaying)
	assert.Equal(t, player.Paused, f.out.Last().State())

	require.NoError(t, f.e.TogglePlay())
	assert.True(t, f.e.State().IsPlaying)
	assert.Len(t, f.out.Sources(), 1)
}

func TestEvents_TrackAndState(t *testing.T) {
	f := newFixture(t, abc())
	sub := f.e.Subscribe()

	f.selectAt(t, 0, true)
	require.NoError(t, f.e.Next())

	first := <-sub.TrackChanged
	assert.Nil(t, first.Previous)
	assert.Equal(t, "A", first.Current.Title)
	second := <-sub.TrackChanged
	assert.Equal(t, "A", second.Previous.Title)
	assert.Equal(t, "B", second.Current.Title)
	assert.Equal(t, 1, second.Index)
	assert.Nil(t, second.Current.Payload)

	sc := <-sub.StateChanged
	assert.True(t, sc.Current.IsPlaying)
}

func TestEQ(t *testing.T) {
	f := newFixture(t, abc())

	require.ErrorIs(t, f.e.SetBandGain(15, 3), dsp.ErrBandIndex)
	require.ErrorIs(t, f.e.SetBandGain(-1, 3), dsp.ErrBandIndex)

	require.NoError(t, f.e.SetBandGain(0, 40))
	f.e.SetQFactor(2)

	f.selectAt(t, 0, true)
	require.True(t, f.e.graphActive())
	require.NoError(t, f.e.SetBandGain(1, -3))

	eq := f.e.EQ()
	assert.Less(t, eq.Gains[0], 40.0, "gain is clamped")
	assert.InDelta(t, -3, eq.Gains[1], 1e-9)
	assert.InDelta(t, 2, eq.Q, 1e-9)
	assert.Equal(t, eq, f.e.graph.EQ(), "graph starts from and follows the setting")
	assert.Positive(t, f.st.EQSaves())
	assert.NotNil(t, f.e.Spectrum())
}

func TestSetDSP(t *testing.T) {
	f := newFixture(t, nil)

	f.e.SetDSP(DSPSettings{AIUpsampling: true, UpsamplingLevel: 9})
	assert.Equal(t, MaxUpsamplingLevel, f.e.DSP().UpsamplingLevel)
	assert.InDelta(t, DefaultCrossfadeSeconds, f.e.DSP().CrossfadeDuration, 1e-9)
	assert.Equal(t, MaxUpsamplingLevel, f.out.Quality())

	f.e.SetDSP(DSPSettings{UpsamplingLevel: 2})
	assert.Equal(t, player.DefaultQuality, f.out.Quality(), "quality is fixed without upsampling")
}

func TestClose(t *testing.T) {
	f := newFixture(t, abc())
	sub := f.e.Subscribe()
	f.selectAt(t, 0, true)
	src := f.out.Last()

	require.NoError(t, f.e.Close())
	require.NoError(t, f.e.Close())

	assert.True(t, src.IsClosed())
	assert.Equal(t, 0, f.blobs.Len())
	assert.ErrorIs(t, f.e.Next(), ErrClosed)
	select {
	case <-sub.Done:
	default:
		t.Fatal("subscription not closed")
	}
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t, abc())
	sub := f.e.Subscribe()
	other := f.e.Subscribe()

	f.e.Unsubscribe(sub)
	f.e.Unsubscribe(sub)

	select {
	case <-sub.Done:
	default:
		t.Fatal("unsubscribed Done not closed")
	}

	f.e.SetRepeat(true)
	select {
	case <-sub.ModeChanged:
		t.Fatal("detached subscription still receives events")
	default:
	}
	select {
	case m := <-other.ModeChanged:
		assert.True(t, m.Repeat)
	case <-time.After(time.Second):
		t.Fatal("remaining subscription missed the event")
	}

	require.NoError(t, f.e.Close())
}
