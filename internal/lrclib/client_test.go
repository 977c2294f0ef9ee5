package lrclib

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get", r.URL.Path)
		assert.Equal(t, "Band", r.URL.Query().Get("artist_name"))
		assert.Equal(t, "Song", r.URL.Query().Get("track_name"))
		assert.Equal(t, "181", r.URL.Query().Get("duration"))
		assert.Contains(t, r.Header.Get("User-Agent"), "ripple")
		_ = json.NewEncoder(w).Encode(LyricsResult{
			TrackName:    "Song",
			PlainLyrics:  "plain",
			SyncedLyrics: "[00:01.00]synced",
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", time.Second)
	res, err := c.Get(context.Background(), "Band", "Song", 181*time.Second)
	require.NoError(t, err)
	assert.True(t, res.HasSyncedLyrics())
	assert.Equal(t, "[00:01.00]synced", res.Text())
}

func TestClient_GetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Get(context.Background(), "a", "b", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Song Band", r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode([]LyricsResult{{PlainLyrics: "only plain"}})
	}))
	defer srv.Close()

	results, err := New(srv.URL, time.Second).Search(context.Background(), "Song Band")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].HasSyncedLyrics())
	assert.Equal(t, "only plain", results[0].Text())
}
