// Package imagesearch resolves artwork for a track from remote services.
package imagesearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/llehouerou/ripple/internal/musicbrainz"
)

// ErrNotFound is returned when a searcher has no image for the query.
var ErrNotFound = errors.New("no image found")

// maxImageBytes caps downloaded artwork.
const maxImageBytes = 10 << 20

// Query describes the artwork to find.
type Query struct {
	// Phrase is a free-text search phrase, usually generated.
	Phrase string
	Title  string
	Artist string
}

// Image is downloaded artwork.
type Image struct {
	Data []byte
	MIME string
}

// Searcher finds artwork.
type Searcher interface {
	Search(ctx context.Context, q Query) (*Image, error)
}

// TagEndpoint fetches an image from a URL template keyed by tags.
type TagEndpoint struct {
	httpClient *http.Client
	template   string
}

// NewTagEndpoint creates a searcher for template. The template must
// contain {tags}, which is replaced by the comma separated phrase words.
func NewTagEndpoint(template string, timeout time.Duration) (*TagEndpoint, error) {
	if !strings.Contains(template, "{tags}") {
		return nil, fmt.Errorf("image search template %q: missing {tags}", template)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TagEndpoint{
		httpClient: &http.Client{Timeout: timeout},
		template:   template,
	}, nil
}

// Tags turns a phrase into a comma separated, lower case tag list.
func Tags(phrase string) string {
	words := strings.FieldsFunc(strings.ToLower(phrase), func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	for i, w := range words {
		words[i] = url.PathEscape(w)
	}
	return strings.Join(words, ",")
}

func (e *TagEndpoint) Search(ctx context.Context, q Query) (*Image, error) {
	phrase := q.Phrase
	if phrase == "" {
		phrase = strings.TrimSpace(q.Title + " " + q.Artist)
	}
	tags := Tags(phrase)
	if tags == "" {
		return nil, ErrNotFound
	}
	reqURL := strings.ReplaceAll(e.template, "{tags}", tags)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("not an image: %s", mime)
	}
	return &Image{Data: data, MIME: mime}, nil
}

// CoverArt searches MusicBrainz and the Cover Art Archive by title and artist.
type CoverArt struct {
	client *musicbrainz.Client
}

// NewCoverArt wraps a MusicBrainz client.
func NewCoverArt(client *musicbrainz.Client) *CoverArt {
	return &CoverArt{client: client}
}

func (c *CoverArt) Search(ctx context.Context, q Query) (*Image, error) {
	if q.Title == "" {
		return nil, ErrNotFound
	}
	data, mime, err := c.client.FrontCover(ctx, q.Title, q.Artist)
	if err != nil {
		if errors.Is(err, musicbrainz.ErrNoCover) {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}
	return &Image{Data: data, MIME: mime}, nil
}

// Chain tries searchers in order and returns the first image.
type Chain []Searcher

func (c Chain) Search(ctx context.Context, q Query) (*Image, error) {
	errs := []error{ErrNotFound}
	for _, s := range c {
		img, err := s.Search(ctx, q)
		if err == nil && img != nil && len(img.Data) > 0 {
			return img, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

// Verify searchers implement Searcher at compile time.
var (
	_ Searcher = (*TagEndpoint)(nil)
	_ Searcher = (*CoverArt)(nil)
	_ Searcher = Chain(nil)
)
