// Package library persists the user's track collection.
package library

import (
	"context"

	"github.com/llehouerou/ripple/internal/track"
)

// Store is the durable library. Metadata and payload of a record are
// written together; a failed write leaves neither half behind.
type Store interface {
	// GetAll returns every record in insertion order. Payloads are not loaded.
	GetAll(ctx context.Context) ([]track.Track, error)
	// Get returns one record with its payload, or track.ErrNotFound.
	Get(ctx context.Context, id float64) (*track.Track, error)
	// Save inserts or replaces the record with t.ID.
	Save(ctx context.Context, t track.Track) error
	Delete(ctx context.Context, id float64) error
	Clear(ctx context.Context) error
}
