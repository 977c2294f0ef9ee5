package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNoCover is returned when no release has front cover art.
var ErrNoCover = errors.New("no cover art")

// maxCoverCandidates bounds how many releases FrontCover tries.
const maxCoverCandidates = 3

// GetCoverArt fetches the 500px front cover for a release from Cover Art
// Archive. Returns nil data if no cover art is available.
func (c *Client) GetCoverArt(ctx context.Context, releaseMBID string) (data []byte, mime string, err error) {
	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, "", err
	}

	reqURL := fmt.Sprintf("%s/release/%s/front-500", c.coverURL, releaseMBID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	// 404 means no cover art available - not an error
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}
	mime = resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// FrontCover finds a release for the recording and returns its front cover.
func (c *Client) FrontCover(ctx context.Context, title, artist string) ([]byte, string, error) {
	if title == "" {
		return nil, "", ErrNoCover
	}
	releases, err := c.SearchReleases(ctx, title, artist)
	if err != nil {
		return nil, "", err
	}

	var errs []error
	for i, r := range releases {
		if i == maxCoverCandidates {
			break
		}
		data, mime, err := c.GetCoverArt(ctx, r.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if data != nil {
			return data, mime, nil
		}
	}
	errs = append(errs, ErrNoCover)
	return nil, "", errors.Join(errs...)
}
