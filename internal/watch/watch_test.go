package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/ripple/internal/track"
)

type recordingSink struct {
	mu     sync.Mutex
	tracks []track.Track
}

func (s *recordingSink) AddToLibrary(tracks ...track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, tracks...)
}

func (s *recordingSink) snapshot() []track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]track.Track(nil), s.tracks...)
}

func TestWatcher_IngestsNewAudio(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	sink := &recordingSink{}
	w := New(dir, sink, WithSettle(20*time.Millisecond))
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.lrc"), []byte("[00:00.00]la"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Song.mp3"), []byte("audio"), 0o644))

	require.Eventually(t, func() bool { return len(sink.snapshot()) > 0 }, 3*time.Second, 10*time.Millisecond)

	got := sink.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "Song", got[0].Title)
	assert.Equal(t, "[00:00.00]la", got[0].Lyrics)
	assert.Equal(t, []byte("audio"), got[0].Payload.Data)
}

func TestWatcher_CloseDropsPending(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	w := New(dir, sink, WithSettle(time.Hour))
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.flac"), []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.pending) == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Empty(t, sink.snapshot())
}
