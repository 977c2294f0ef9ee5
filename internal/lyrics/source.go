package lyrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/llehouerou/ripple/internal/lrclib"
)

// Source provides lyrics from the on-disk cache or the lrclib API.
type Source struct {
	client   *lrclib.Client
	cacheDir string
}

// NewSource creates a lyrics source. An empty cacheDir disables caching.
func NewSource(client *lrclib.Client, cacheDir string) *Source {
	return &Source{client: client, cacheDir: cacheDir}
}

// TrackInfo contains the information needed to fetch lyrics.
type TrackInfo struct {
	Artist   string
	Title    string
	Duration time.Duration
}

// FetchResult contains the result of a lyrics fetch.
type FetchResult struct {
	Text   string
	Source string // "cache", "api", "search" or "not_found"
	Err    error
}

// Found reports whether lyrics were retrieved.
func (r FetchResult) Found() bool { return r.Text != "" }

// Fetch retrieves lyrics for a track using the priority order:
// 1. Cached .lrc file
// 2. lrclib exact match (and cache the result)
// 3. lrclib search, first result with lyrics
//
// Synced lyrics are preferred over plain ones at every step.
func (s *Source) Fetch(ctx context.Context, track TrackInfo) FetchResult {
	if track.Artist == "" || track.Title == "" {
		return FetchResult{Source: "not_found"}
	}

	cachePath := s.cachePath(track.Artist, track.Title)
	if cachePath != "" {
		if data, err := os.ReadFile(cachePath); err == nil && len(data) > 0 {
			return FetchResult{Text: string(data), Source: "cache"}
		}
	}

	result, err := s.client.Get(ctx, track.Artist, track.Title, track.Duration)
	switch {
	case err == nil && result.Text() != "":
		s.saveToCache(cachePath, result)
		return FetchResult{Text: result.Text(), Source: "api"}
	case err != nil && !errors.Is(err, lrclib.ErrNotFound):
		return FetchResult{Source: "not_found", Err: err}
	}

	results, err := s.client.Search(ctx, track.Title+" "+track.Artist)
	if err != nil {
		return FetchResult{Source: "not_found", Err: err}
	}
	for i := range results {
		if results[i].Instrumental || results[i].Text() == "" {
			continue
		}
		s.saveToCache(cachePath, &results[i])
		return FetchResult{Text: results[i].Text(), Source: "search"}
	}
	return FetchResult{Source: "not_found"}
}

// cachePath returns the cache file path for a track.
func (s *Source) cachePath(artist, title string) string {
	if s.cacheDir == "" {
		return ""
	}
	return filepath.Join(s.cacheDir, sanitizeFilename(artist), sanitizeFilename(title)+".lrc")
}

// saveToCache stores synced lyrics only; plain text is cheap to refetch.
func (s *Source) saveToCache(path string, result *lrclib.LyricsResult) {
	if path == "" || !result.HasSyncedLyrics() {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(path, []byte(result.SyncedLyrics), 0o600)
}

// sanitizeFilename removes or replaces characters that are problematic in filenames.
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

func sanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "_"
	}
	return name
}

// IsSynced returns true if the lyrics have timestamps (synced).
func (l *Lyrics) IsSynced() bool {
	for _, line := range l.Lines {
		if line.Time > 0 {
			return true
		}
	}
	return false
}

// Parse reads LRC text, or plain text with one line per row at time 0.
func Parse(text string) *Lyrics {
	if l, err := ParseLRC(strings.NewReader(text)); err == nil && len(l.Lines) > 0 {
		return l
	}
	l := &Lyrics{}
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			l.Lines = append(l.Lines, Line{Text: line})
		}
	}
	return l
}
