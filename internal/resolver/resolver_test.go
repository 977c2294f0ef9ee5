package resolver

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/ripple/internal/accent"
	"github.com/llehouerou/ripple/internal/blob"
	"github.com/llehouerou/ripple/internal/imagesearch"
)

func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func taggedMP3(t *testing.T, title, artist string, cover []byte) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	tag.SetTitle(title)
	tag.SetArtist(artist)
	if cover != nil {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/png",
			PictureType: id3v2.PTFrontCover,
			Picture:     cover,
		})
	}
	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	buf.Write([]byte{0xFF, 0xFB, 0x90, 0x00})
	buf.Write(make([]byte, 64))
	return buf.Bytes()
}

type stubGenerator struct {
	phrase string
	err    error
	calls  int
}

func (g *stubGenerator) SearchPhrase(context.Context, string, string) (string, error) {
	g.calls++
	return g.phrase, g.err
}

type stubSearcher struct {
	img     *imagesearch.Image
	err     error
	queries []imagesearch.Query
}

func (s *stubSearcher) Search(_ context.Context, q imagesearch.Query) (*imagesearch.Image, error) {
	s.queries = append(s.queries, q)
	return s.img, s.err
}

func TestResolve_EmbeddedTags(t *testing.T) {
	blobs := blob.NewRegistry()
	search := &stubSearcher{}
	r := New(blobs, WithImageSearcher(search))

	res, err := r.Resolve(context.Background(), Request{
		TrackID:        1,
		Payload:        taggedMP3(t, "Song", "Band", redPNG(t)),
		Format:         "MP3",
		FallbackTitle:  "file name",
		FallbackArtist: "Unknown Artist",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Song", res.Title)
	assert.Equal(t, "Band", res.Artist)
	assert.Equal(t, "embedded", res.ArtworkSource)
	assert.True(t, blob.IsBlob(res.CoverURL))
	assert.Equal(t, 1, blobs.Len())
	assert.Empty(t, search.queries, "no search when artwork is embedded")

	r8, g8, _ := res.Accent.RGB255()
	assert.Greater(t, r8, g8)
}

func TestResolve_FallbackTitleAndSearch(t *testing.T) {
	blobs := blob.NewRegistry()
	gen := &stubGenerator{phrase: "neon night drive"}
	search := &stubSearcher{img: &imagesearch.Image{Data: redPNG(t), MIME: "image/png"}}
	r := New(blobs, WithTextGenerator(gen), WithImageSearcher(search))

	res, err := r.Resolve(context.Background(), Request{
		TrackID:        2,
		Payload:        []byte("no tags here"),
		FallbackTitle:  "track01",
		FallbackArtist: "Unknown Artist",
	}, nil)
	assert.Error(t, err, "tag failure is reported")

	assert.Equal(t, "track01", res.Title)
	assert.Equal(t, "Unknown Artist", res.Artist)
	assert.Equal(t, "search", res.ArtworkSource)
	require.Len(t, search.queries, 1)
	assert.Equal(t, "neon night drive", search.queries[0].Phrase)
	assert.Equal(t, 1, blobs.Len())
}

func TestResolve_GeneratorFailureUsesLiteralPhrase(t *testing.T) {
	gen := &stubGenerator{err: errors.New("offline")}
	search := &stubSearcher{err: imagesearch.ErrNotFound}
	r := New(blob.NewRegistry(), WithTextGenerator(gen), WithImageSearcher(search))

	res, err := r.Resolve(context.Background(), Request{FallbackTitle: "Song", FallbackArtist: "Band"}, nil)
	assert.ErrorIs(t, err, imagesearch.ErrNotFound)

	require.Len(t, search.queries, 1)
	assert.Equal(t, "Song Band", search.queries[0].Phrase)
	assert.Empty(t, res.CoverURL)
	assert.Equal(t, accent.Default, res.Accent)
}

func TestResolve_NoFallbackServicesConfigured(t *testing.T) {
	blobs := blob.NewRegistry()
	res, err := New(blobs).Resolve(context.Background(), Request{
		FallbackTitle:  "Song",
		FallbackArtist: "Band",
		Lyrics:         "[00:01.00]hi",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.CoverURL)
	assert.Equal(t, accent.Default, res.Accent)
	assert.Equal(t, "[00:01.00]hi", res.Lyrics)
	assert.Equal(t, 0, blobs.Len())
}

func TestResolve_UndecodableArtworkKeepsDefaultAccent(t *testing.T) {
	search := &stubSearcher{img: &imagesearch.Image{Data: []byte("GIF89a-broken"), MIME: "image/gif"}}
	res, err := New(blob.NewRegistry(), WithImageSearcher(search)).Resolve(context.Background(), Request{FallbackTitle: "x"}, nil)
	assert.Error(t, err)
	assert.NotEmpty(t, res.CoverURL)
	assert.Equal(t, accent.Default, res.Accent)
}

// blockingSearcher holds every search until the context ends.
type blockingSearcher struct {
	started chan struct{}
}

func (s *blockingSearcher) Search(ctx context.Context, _ imagesearch.Query) (*imagesearch.Image, error) {
	close(s.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolve_EmbeddedTagsDeliveredBeforeSearch(t *testing.T) {
	search := &blockingSearcher{started: make(chan struct{})}
	r := New(blob.NewRegistry(), WithImageSearcher(search))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := taggedMP3(t, "Embedded", "Band", nil)
	stages := make(chan *Result, 4)
	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, Request{
			TrackID:       7,
			Payload:       payload,
			Format:        "MP3",
			FallbackTitle: "file01",
		}, func(res *Result) { stages <- res })
		done <- err
	}()

	select {
	case first := <-stages:
		assert.Equal(t, "Embedded", first.Title)
		assert.Equal(t, "Band", first.Artist)
		assert.Empty(t, first.CoverURL)
	case <-time.After(time.Second):
		t.Fatal("embedded tags waited on the artwork search")
	}
	<-search.started

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, stages, "a failed search delivers nothing")
}

func TestResolve_DeliversEachStage(t *testing.T) {
	search := &stubSearcher{img: &imagesearch.Image{Data: redPNG(t), MIME: "image/png"}}
	r := New(blob.NewRegistry(), WithImageSearcher(search))

	var got []Result
	final, err := r.Resolve(context.Background(), Request{FallbackTitle: "Song", FallbackArtist: "Band"}, func(res *Result) {
		got = append(got, *res)
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Song", got[0].Title)
	assert.Empty(t, got[0].CoverURL)
	assert.Equal(t, accent.Default, got[0].Accent)
	assert.Equal(t, "search", got[1].ArtworkSource)
	assert.Equal(t, *final, got[1])
}
