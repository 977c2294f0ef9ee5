// Package playlist holds the in-memory track lists the engine navigates.
package playlist

import "github.com/llehouerou/ripple/internal/track"

// Collection is an ordered list of tracks with unique ids.
type Collection struct {
	tracks []track.Track
}

// NewCollection creates a collection from tracks, dropping duplicate ids.
func NewCollection(tracks ...track.Track) *Collection {
	c := &Collection{tracks: make([]track.Track, 0, len(tracks))}
	c.Add(tracks...)
	return c
}

// Add appends tracks whose id is not already present.
// Returns the number of tracks actually added.
func (c *Collection) Add(tracks ...track.Track) int {
	added := 0
	for i := range tracks {
		if c.IndexOf(tracks[i].ID) >= 0 {
			continue
		}
		c.tracks = append(c.tracks, tracks[i])
		added++
	}
	return added
}

// Insert places t at index. It is a no-op if the id is already present.
func (c *Collection) Insert(index int, t track.Track) bool {
	if c.IndexOf(t.ID) >= 0 {
		return false
	}
	index = max(0, min(index, len(c.tracks)))
	c.tracks = append(c.tracks, track.Track{})
	copy(c.tracks[index+1:], c.tracks[index:])
	c.tracks[index] = t
	return true
}

// Upsert replaces the track with the same id in place, or appends it.
func (c *Collection) Upsert(t track.Track) {
	if i := c.IndexOf(t.ID); i >= 0 {
		c.tracks[i] = t
		return
	}
	c.tracks = append(c.tracks, t)
}

// Remove deletes the track with id. Returns its former index or -1.
func (c *Collection) Remove(id float64) int {
	i := c.IndexOf(id)
	if i < 0 {
		return -1
	}
	c.tracks = append(c.tracks[:i], c.tracks[i+1:]...)
	return i
}

// IndexOf returns the position of id, or -1.
func (c *Collection) IndexOf(id float64) int {
	for i := range c.tracks {
		if c.tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// At returns the track at index, or nil if out of bounds.
func (c *Collection) At(index int) *track.Track {
	if index < 0 || index >= len(c.tracks) {
		return nil
	}
	return &c.tracks[index]
}

// Tracks returns a copy of the tracks.
func (c *Collection) Tracks() []track.Track {
	result := make([]track.Track, len(c.tracks))
	copy(result, c.tracks)
	return result
}

// Replace swaps the whole content, dropping duplicate ids.
func (c *Collection) Replace(tracks []track.Track) {
	c.tracks = c.tracks[:0]
	c.Add(tracks...)
}

// Clear removes all tracks.
func (c *Collection) Clear() {
	c.tracks = c.tracks[:0]
}

// Len returns the number of tracks.
func (c *Collection) Len() int {
	return len(c.tracks)
}
