package track

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a library reference names an unknown id.
	ErrNotFound = errors.New("track not found")
	// ErrNoPayload is returned when a track has no audio bytes to play.
	ErrNoPayload = errors.New("track has no audio payload")
)

// Ref is anything that can be resolved to a playable track.
type Ref interface {
	isRef()
}

// RawPayload is a file that has not been turned into a track yet.
type RawPayload struct {
	Name string
	Data []byte
}

// LibraryReference points at a persisted record by id.
type LibraryReference struct {
	ID float64
}

// QueueEntry is a track already held by the queue or library list.
type QueueEntry struct {
	Track Track
}

func (RawPayload) isRef() {}
func (LibraryReference) isRef() {}
func (QueueEntry) isRef() {}

// Loader fetches a full library record including its payload.
type Loader interface {
	Get(ctx context.Context, id float64) (*Track, error)
}

// Normalize resolves ref to a payload-bearing track.
func Normalize(ctx context.Context, ref Ref, loader Loader, now time.Time) (Track, error) {
	switch r := ref.(type) {
	case RawPayload:
		if len(r.Data) == 0 {
			return Track{}, fmt.Errorf("%s: %w", r.Name, ErrNoPayload)
		}
		return NewTransient(r.Name, r.Data, now), nil

	case LibraryReference:
		return load(ctx, loader, r.ID)

	case QueueEntry:
		if r.Track.HasPayload() {
			return r.Track, nil
		}
		if r.Track.Transient {
			return Track{}, fmt.Errorf("track %v: %w", r.Track.ID, ErrNoPayload)
		}
		t, err := load(ctx, loader, r.Track.ID)
		if err != nil {
			return Track{}, err
		}
		return t, nil

	case nil:
		return Track{}, errors.New("nil track reference")

	default:
		return Track{}, fmt.Errorf("unsupported track reference %T", ref)
	}
}

func load(ctx context.Context, loader Loader, id float64) (Track, error) {
	if loader == nil {
		return Track{}, fmt.Errorf("track %v: %w", id, ErrNotFound)
	}
	t, err := loader.Get(ctx, id)
	if err != nil {
		return Track{}, err
	}
	if t == nil {
		return Track{}, fmt.Errorf("track %v: %w", id, ErrNotFound)
	}
	if !t.HasPayload() {
		return Track{}, fmt.Errorf("track %v: %w", id, ErrNoPayload)
	}
	return *t, nil
}
