// Package resolver derives display metadata for a track: embedded tags,
// fallback artwork, an accent color and lyrics.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/accent"
	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/imagesearch"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/lyrics"
	"github.com/llehouerou/ripple/internal/tags"
	"github.com/llehouerou/ripple/internal/textgen"
)

// Request identifies the track to resolve and carries its known data.
type Request struct {
	TrackID        float64
	Payload        []byte
	Format         string
	FallbackTitle  string
	FallbackArtist string
	Lyrics         string
	Duration       time.Duration
}

// Result is the best metadata available for a track.
type Result struct {
	TrackID float64
	Title   string
	Artist  string
	// CoverURL is a blob handle owned by the caller, empty without artwork.
	CoverURL string
	Accent   colorful.Color
	Lyrics   string
	// ArtworkSource is "embedded", "search" or "".
	ArtworkSource string
}

// Resolver runs the metadata pipeline.
type Resolver struct {
	blobs  *blob.Registry
	text   textgen.Generator
	images imagesearch.Searcher
	lyrics *lyrics.Source
}

// Option configures optional pipeline stages.
type Option func(*Resolver)

// WithTextGenerator enables search phrase generation.
func WithTextGenerator(g textgen.Generator) Option {
	return func(r *Resolver) { r.text = g }
}

// WithImageSearcher enables artwork search.
func WithImageSearcher(s imagesearch.Searcher) Option {
	return func(r *Resolver) { r.images = s }
}

// WithLyrics enables remote lyrics lookup.
func WithLyrics(s *lyrics.Source) Option {
	return func(r *Resolver) { r.lyrics = s }
}

// New creates a resolver registering artwork in blobs.
func New(blobs *blob.Registry, opts ...Option) *Resolver {
	r := &Resolver{blobs: blobs}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Deliver receives a snapshot of the result after each stage that added to
// it. Snapshots are cumulative; the last one equals the returned result.
type Deliver func(*Result)

// Resolve runs every stage, each short-circuiting on success. Embedded tags
// are delivered before any network stage starts. deliver may be nil. The
// result is never nil. The error joins the failures of all stages; callers
// log it.
func (r *Resolver) Resolve(ctx context.Context, req Request, deliver Deliver) (*Result, error) {
	res := &Result{TrackID: req.TrackID, Accent: accent.Default, Lyrics: req.Lyrics}
	publish := func() {
		if deliver != nil {
			snap := *res
			deliver(&snap)
		}
	}
	var errs []error
	var artwork []byte

	if len(req.Payload) > 0 {
		t, err := tags.ReadBytes(req.Payload, req.Format)
		if err != nil {
			errs = append(errs, fmt.Errorf("read tags: %w", err))
		}
		if t != nil {
			res.Title = t.Title
			res.Artist = t.Artist
			if res.Lyrics == "" {
				res.Lyrics = t.Lyrics
			}
			if t.Picture != nil {
				artwork = t.Picture.Data
				res.CoverURL = r.blobs.Create(t.Picture.Data, t.Picture.MIME)
				res.ArtworkSource = "embedded"
			}
		}
	}

	if res.Title == "" {
		res.Title = req.FallbackTitle
	}
	if res.Artist == "" {
		res.Artist = req.FallbackArtist
	}
	if artwork != nil {
		res.Accent = r.accentOf(artwork, &errs)
	}
	publish()

	if artwork == nil && r.images != nil {
		img, err := r.searchArtwork(ctx, res.Title, res.Artist)
		if err != nil {
			errs = append(errs, err)
		} else {
			res.CoverURL = r.blobs.Create(img.Data, img.MIME)
			res.ArtworkSource = "search"
			res.Accent = r.accentOf(img.Data, &errs)
			publish()
		}
	}

	if res.Lyrics == "" && r.lyrics != nil {
		fr := r.lyrics.Fetch(ctx, lyrics.TrackInfo{Artist: res.Artist, Title: res.Title, Duration: req.Duration})
		if fr.Err != nil {
			errs = append(errs, fmt.Errorf("lyrics: %w", fr.Err))
		}
		if fr.Text != "" {
			res.Lyrics = fr.Text
			publish()
		}
	}

	return res, errors.Join(errs...)
}

func (r *Resolver) accentOf(artwork []byte, errs *[]error) colorful.Color {
	c, err := accent.Dominant(artwork)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("accent: %w", err))
	}
	return c
}

func (r *Resolver) searchArtwork(ctx context.Context, title, artist string) (*imagesearch.Image, error) {
	phrase := textgen.Fallback(title, artist)
	if r.text != nil {
		p, err := r.text.SearchPhrase(ctx, title, artist)
		if err != nil {
			logger.Debug("search phrase fallback", zap.Error(err))
		} else {
			phrase = p
		}
	}
	if phrase == "" {
		return nil, fmt.Errorf("artwork: %w", imagesearch.ErrNotFound)
	}

	img, err := r.images.Search(ctx, imagesearch.Query{Phrase: phrase, Title: title, Artist: artist})
	if err != nil {
		return nil, fmt.Errorf("artwork search %q: %w", phrase, err)
	}
	return img, nil
}
