package track

import (
	"sync"
	"time"
)

// IDSource hands out strictly increasing millisecond ids. An id is the
// current time unless that was already used, in which case it is one past
// the last id handed out.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

// Next returns a fresh id for now.
func (s *IDSource) Next(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = max(now.UnixMilli(), s.last+1)
	return float64(s.last)
}

// Reserve marks id as used so Next never returns it or anything below it.
func (s *IDSource) Reserve(id float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = max(s.last, int64(id))
}

var ids IDSource

// NextID returns a process-wide unique id for a track created at now.
func NextID(now time.Time) float64 {
	return ids.Next(now)
}

// ReserveIDs keeps NextID above every id in tracks, such as a library
// loaded from disk.
func ReserveIDs(tracks []Track) {
	for _, t := range tracks {
		ids.Reserve(t.ID)
	}
}
