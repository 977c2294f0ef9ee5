package playlist

import "github.com/llehouerou/ripple/internal/track"

// RecentsLimit caps the recently played list.
const RecentsLimit = 20

// Recents is a most-recent-first list without duplicates.
type Recents struct {
	tracks []track.Track
	limit  int
}

// NewRecents creates an empty list capped at limit entries.
func NewRecents(limit int) *Recents {
	return &Recents{limit: limit}
}

// Push moves t to the front, evicting the oldest entry past the limit.
func (r *Recents) Push(t track.Track) {
	t = storable(t)
	r.Remove(t.ID)
	r.tracks = append([]track.Track{t}, r.tracks...)
	if len(r.tracks) > r.limit {
		r.tracks = r.tracks[:r.limit]
	}
}

// Remove drops id from the list.
func (r *Recents) Remove(id float64) {
	for i := range r.tracks {
		if r.tracks[i].ID == id {
			r.tracks = append(r.tracks[:i], r.tracks[i+1:]...)
			return
		}
	}
}

// Tracks returns a copy, most recent first.
func (r *Recents) Tracks() []track.Track {
	return snapshot(r.tracks)
}

// Len returns the number of entries.
func (r *Recents) Len() int {
	return len(r.tracks)
}
