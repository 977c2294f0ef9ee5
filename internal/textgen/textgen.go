// Package textgen asks a local language model for short text, such as an
// image search phrase for a track.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("empty model response")

// Generator produces an image search phrase for a track.
type Generator interface {
	SearchPhrase(ctx context.Context, title, artist string) (string, error)
}

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.2"

	maxPhraseWords = 8

	searchSystem = "You write short image search queries for album artwork. " +
		"Answer with the query only, no quotes, no explanation, at most eight words."
)

// Ollama generates text through the Ollama API.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates a generator for the Ollama server at rawURL.
func NewOllama(rawURL, model string, timeout time.Duration) (*Ollama, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse ollama url %q: missing scheme or host", rawURL)
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Ollama{
		client: api.NewClient(base, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

// SearchPhrase asks the model for an artwork search phrase.
func (o *Ollama) SearchPhrase(ctx context.Context, title, artist string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: fmt.Sprintf("Track title: %s\nArtist: %s\nSearch query for the album cover:", title, artist),
		System: searchSystem,
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0.2,
			"num_predict": 32,
		},
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	phrase := cleanPhrase(sb.String())
	if phrase == "" {
		return "", ErrEmptyResponse
	}
	return phrase, nil
}

// cleanPhrase keeps the first non-empty line, strips quotes and caps length.
func cleanPhrase(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "\"'`")
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		if len(words) > maxPhraseWords {
			words = words[:maxPhraseWords]
		}
		return strings.Join(words, " ")
	}
	return ""
}

// Fallback is the literal phrase used when no generator is available.
func Fallback(title, artist string) string {
	return strings.TrimSpace(title + " " + artist)
}

// Verify Ollama implements Generator at compile time.
var _ Generator = (*Ollama)(nil)
