package track

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mapLoader map[float64]*Track

func (m mapLoader) Get(_ context.Context, id float64) (*Track, error) {
	t, ok := m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func TestFormatClassification(t *testing.T) {
	tests := []struct {
		format string
		hiRes  bool
	}{
		{"FLAC", true},
		{"flac", true},
		{".wav", true},
		{"Aiff", true},
		{"aif", true},
		{"ALAC", true},
		{"ape", true},
		{"wv", true},
		{"DSF", true},
		{"dff", true},
		{"MP3", false},
		{"ogg", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := IsHiRes(tt.format); got != tt.hiRes {
				t.Errorf("IsHiRes(%q) = %v, want %v", tt.format, got, tt.hiRes)
			}
			if got := Is24Bit(tt.format); got != tt.hiRes {
				t.Errorf("Is24Bit(%q) = %v, want %v", tt.format, got, tt.hiRes)
			}
		})
	}
}

func TestFormatFromName(t *testing.T) {
	tests := map[string]string{
		"song.mp3":        "MP3",
		"/a/b/Track.FLAC": "FLAC",
		"noext":           "",
		"archive.tar.wav": "WAV",
		"weird.name.Dsf":  "DSF",
	}
	for name, want := range tests {
		if got := FormatFromName(name); got != want {
			t.Errorf("FormatFromName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestNewTransient(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	tr := NewTransient("dir/My Song.flac", []byte{1, 2, 3}, now)

	if tr.ID < 1_700_000_000_123 {
		t.Errorf("ID = %v, want at least 1700000000123", tr.ID)
	}
	again := NewTransient("dir/My Song.flac", []byte{1, 2, 3}, now)
	if again.ID <= tr.ID {
		t.Errorf("second ID = %v, want above %v", again.ID, tr.ID)
	}
	if tr.Title != "My Song" {
		t.Errorf("Title = %q, want %q", tr.Title, "My Song")
	}
	if tr.Artist != UnknownArtist {
		t.Errorf("Artist = %q, want %q", tr.Artist, UnknownArtist)
	}
	if tr.Format != "FLAC" {
		t.Errorf("Format = %q, want FLAC", tr.Format)
	}
	if tr.Kind() != TransientTrack {
		t.Errorf("Kind = %v, want transient", tr.Kind())
	}
	if !tr.HasPayload() {
		t.Error("transient track must carry its payload")
	}
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(42)
	withPayload := &Track{ID: 1, Title: "A", Payload: &Payload{Name: "a.mp3", Data: []byte{9}}}
	withoutPayload := &Track{ID: 2, Title: "B"}
	loader := mapLoader{1: withPayload, 2: withoutPayload}

	t.Run("raw payload becomes transient", func(t *testing.T) {
		got, err := Normalize(ctx, RawPayload{Name: "x.wav", Data: []byte{1}}, loader, now)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if got.ID < 42 || !got.Transient || got.Format != "WAV" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("empty raw payload fails", func(t *testing.T) {
		_, err := Normalize(ctx, RawPayload{Name: "x.wav"}, loader, now)
		if !errors.Is(err, ErrNoPayload) {
			t.Errorf("err = %v, want ErrNoPayload", err)
		}
	})

	t.Run("library reference loads payload", func(t *testing.T) {
		got, err := Normalize(ctx, LibraryReference{ID: 1}, loader, now)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if got.Title != "A" || !got.HasPayload() {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("library record without payload fails", func(t *testing.T) {
		_, err := Normalize(ctx, LibraryReference{ID: 2}, loader, now)
		if !errors.Is(err, ErrNoPayload) {
			t.Errorf("err = %v, want ErrNoPayload", err)
		}
	})

	t.Run("unknown id fails", func(t *testing.T) {
		_, err := Normalize(ctx, LibraryReference{ID: 99}, loader, now)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("queue entry with payload is returned as is", func(t *testing.T) {
		entry := Track{ID: 7, Payload: &Payload{Data: []byte{1}}, Transient: true}
		got, err := Normalize(ctx, QueueEntry{Track: entry}, nil, now)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if got.ID != 7 {
			t.Errorf("ID = %v, want 7", got.ID)
		}
	})

	t.Run("queue entry without payload loads from library", func(t *testing.T) {
		got, err := Normalize(ctx, QueueEntry{Track: Track{ID: 1}}, loader, now)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if !got.HasPayload() {
			t.Error("expected payload to be loaded")
		}
	})

	t.Run("nil ref fails", func(t *testing.T) {
		if _, err := Normalize(ctx, nil, loader, now); err == nil {
			t.Error("expected error for nil ref")
		}
	})
}

func TestIsAudioAndLyricsFile(t *testing.T) {
	if !IsAudioFile("a.MP3") || IsAudioFile("a.lrc") {
		t.Error("IsAudioFile misclassified")
	}
	if !IsLyricsFile("a.LRC") || !IsLyricsFile("a.txt") || IsLyricsFile("a.flac") {
		t.Error("IsLyricsFile misclassified")
	}
}
