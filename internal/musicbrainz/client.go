package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the public MusicBrainz web service.
	DefaultBaseURL = "https://musicbrainz.org/ws/2"
	// DefaultCoverArtURL is the public Cover Art Archive.
	DefaultCoverArtURL = "https://coverartarchive.org"

	userAgent    = "Ripple/0.1 (https://github.com/llehouerou/ripple)"
	rateLimitDur = time.Second // MusicBrainz requires 1 request per second

	// Retry configuration
	maxRetries   = 3
	initialDelay = 2 * time.Second
	maxDelay     = 30 * time.Second
)

// Options configures a Client. Zero values select the public services.
type Options struct {
	BaseURL     string
	CoverArtURL string
	Timeout     time.Duration
	// RateLimit is the minimum delay between requests; negative disables it.
	RateLimit time.Duration
}

// Client provides access to the MusicBrainz API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	coverURL    string
	rateLimit   time.Duration
	lastRequest time.Time
	mu          sync.Mutex
}

// NewClient creates a new MusicBrainz API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CoverArtURL == "" {
		opts.CoverArtURL = DefaultCoverArtURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = rateLimitDur
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		coverURL:   strings.TrimRight(opts.CoverArtURL, "/"),
		rateLimit:  opts.RateLimit,
	}
}

// SearchReleases searches for releases containing a recording by artist.
// Results are ordered by relevance score.
func (c *Client) SearchReleases(ctx context.Context, title, artist string) ([]Release, error) {
	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("recording:%q", title)
	if artist != "" {
		query += fmt.Sprintf(" AND artist:%q", artist)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	params.Set("limit", "10")

	reqURL := fmt.Sprintf("%s/release?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return convertReleases(result.Releases), nil
}

// waitForRateLimit ensures we don't exceed MusicBrainz rate limits.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elapsed := time.Since(c.lastRequest); elapsed < c.rateLimit {
		timer := time.NewTimer(c.rateLimit - elapsed)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// doRequestWithRetry executes an HTTP request with exponential backoff retry.
// Retries on 5xx errors and network errors.
func (c *Client) doRequestWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, maxDelay)
			if err := c.waitForRateLimit(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		// Success or client error (4xx) - don't retry
		if resp.StatusCode < 500 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries+1, lastErr)
}

// convertReleases converts raw API results to Release structs.
func convertReleases(results []releaseResult) []Release {
	releases := make([]Release, 0, len(results))
	for i := range results {
		r := &results[i]
		release := Release{
			ID:      r.ID,
			Title:   r.Title,
			Artist:  extractArtist(r.ArtistCredit),
			Date:    r.Date,
			Country: r.Country,
			Score:   r.Score,
		}
		if r.ReleaseGroup != nil {
			release.ReleaseType = r.ReleaseGroup.PrimaryType
		}
		releases = append(releases, release)
	}

	slices.SortStableFunc(releases, func(a, b Release) int {
		return b.Score - a.Score
	})
	return releases
}

// extractArtist extracts the artist name from artist credits.
func extractArtist(credits []artistCredit) string {
	parts := make([]string, 0, len(credits))
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		parts = append(parts, name+c.JoinPhrase)
	}
	return strings.Join(parts, "")
}
