package playlist

import "github.com/llehouerou/ripple/internal/track"

// PlayingQueue tracks the user queue, the library list and the position
// of the active track.
//
// The active list is the queue when it holds at least one track, else the
// library. currentIndex is -1 or a valid index into the active list; every
// mutation re-establishes that.
type PlayingQueue struct {
	queue        *Collection
	library      *Collection
	recents      *Recents
	history      *QueueHistory
	currentIndex int // -1 if nothing active
}

// NewQueue creates an empty playing queue.
func NewQueue() *PlayingQueue {
	q := &PlayingQueue{
		queue:        NewCollection(),
		library:      NewCollection(),
		recents:      NewRecents(RecentsLimit),
		history:      NewQueueHistory(HistoryDepth),
		currentIndex: -1,
	}
	q.history.Push(nil)
	return q
}

// storable drops the in-memory payload of library tracks; the store keeps
// it. Transient tracks have nowhere else to keep their audio.
func storable(t track.Track) track.Track {
	if !t.Transient {
		t.Payload = nil
	}
	return t
}

func (q *PlayingQueue) active() *Collection {
	if q.queue.Len() > 0 {
		return q.queue
	}
	return q.library
}

// QueueActive reports whether the user queue drives navigation.
func (q *PlayingQueue) QueueActive() bool {
	return q.queue.Len() > 0
}

// Active returns a copy of the active list.
func (q *PlayingQueue) Active() []track.Track {
	return q.active().Tracks()
}

// Len returns the length of the active list.
func (q *PlayingQueue) Len() int {
	return q.active().Len()
}

// IsEmpty returns true if the active list has no tracks.
func (q *PlayingQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Queue returns a copy of the user queue.
func (q *PlayingQueue) Queue() []track.Track {
	return q.queue.Tracks()
}

// Library returns a copy of the library list.
func (q *PlayingQueue) Library() []track.Track {
	return q.library.Tracks()
}

// Recents returns the recently played tracks, most recent first.
func (q *PlayingQueue) Recents() []track.Track {
	return q.recents.Tracks()
}

// CurrentIndex returns the index of the active track (-1 if none).
func (q *PlayingQueue) CurrentIndex() int {
	return q.currentIndex
}

// Current returns the active track, or nil if none.
func (q *PlayingQueue) Current() *track.Track {
	return q.active().At(q.currentIndex)
}

// At returns the track at index in the active list.
func (q *PlayingQueue) At(index int) *track.Track {
	return q.active().At(index)
}

// HasNext returns true if there's a track after the current one.
func (q *PlayingQueue) HasNext() bool {
	return q.currentIndex < q.Len()-1
}

// JumpTo sets the current index to the specified position.
// Returns the track at that position, or nil if invalid.
func (q *PlayingQueue) JumpTo(index int) *track.Track {
	if index < 0 || index >= q.Len() {
		return nil
	}
	q.currentIndex = index
	return q.Current()
}

// Locate returns the index of id in the active list, or -1.
func (q *PlayingQueue) Locate(id float64) int {
	return q.active().IndexOf(id)
}

// Place makes t the active track and returns its index.
//
// A track already in the active list only moves the index. Otherwise it is
// inserted into the queue right after the current entry, or becomes the
// only queue entry when the queue is empty.
func (q *PlayingQueue) Place(t track.Track) int {
	if i := q.Locate(t.ID); i >= 0 {
		q.currentIndex = i
		return i
	}

	t = storable(t)
	if q.queue.Len() == 0 {
		q.queue.Add(t)
		q.currentIndex = 0
		q.history.Push(q.queue.Tracks())
		return 0
	}

	at := q.currentIndex + 1
	q.queue.Insert(at, t)
	q.currentIndex = q.queue.IndexOf(t.ID)
	q.history.Push(q.queue.Tracks())
	return q.currentIndex
}

// Enqueue appends tracks to the user queue without changing the active track.
//
// When the queue was empty and a library track is active, that track seeds
// the queue so it stays reachable from the new active list.
func (q *PlayingQueue) Enqueue(tracks ...track.Track) {
	if len(tracks) == 0 {
		return
	}
	id, ok := q.currentID()
	if q.queue.Len() == 0 && ok {
		q.queue.Add(*q.Current())
	}
	for i := range tracks {
		q.queue.Add(storable(tracks[i]))
	}
	q.reanchor(id, ok)
	q.history.Push(q.queue.Tracks())
}

// ClearQueue empties the user queue; navigation falls back to the library.
func (q *PlayingQueue) ClearQueue() {
	if q.queue.Len() == 0 {
		return
	}
	id, ok := q.currentID()
	q.queue.Clear()
	q.reanchor(id, ok)
	q.history.Push(nil)
}

// SetLibrary replaces the library list.
func (q *PlayingQueue) SetLibrary(tracks []track.Track) {
	id, ok := q.currentID()
	stored := make([]track.Track, len(tracks))
	for i := range tracks {
		stored[i] = storable(tracks[i])
	}
	q.library.Replace(stored)
	q.reanchor(id, ok)
}

// AddToLibrary appends tracks to the library list, skipping known ids.
// Returns the number of tracks added.
func (q *PlayingQueue) AddToLibrary(tracks ...track.Track) int {
	id, ok := q.currentID()
	added := 0
	for i := range tracks {
		added += q.library.Add(storable(tracks[i]))
	}
	q.reanchor(id, ok)
	return added
}

// Update rewrites the metadata of id wherever it appears.
func (q *PlayingQueue) Update(id float64, fn func(*track.Track)) {
	for _, c := range []*Collection{q.library, q.queue} {
		if t := c.At(c.IndexOf(id)); t != nil {
			fn(t)
		}
	}
	for i := range q.recents.tracks {
		if q.recents.tracks[i].ID == id {
			fn(&q.recents.tracks[i])
		}
	}
}

// RemoveID deletes id from the library, the queue and recents.
// Returns true if the removed track was the active one.
//
// When the active track is removed and the active list stays the same, the
// index stays put (now pointing at the following track), clamped to the end.
func (q *PlayingQueue) RemoveID(id float64) bool {
	curID, hasCur := q.currentID()
	before := q.active()
	oldIndex := q.currentIndex

	inQueue := q.queue.Remove(id) >= 0
	q.library.Remove(id)
	q.recents.Remove(id)
	if inQueue {
		q.history.Push(q.queue.Tracks())
	}

	if !hasCur || curID != id {
		q.reanchor(curID, hasCur)
		return false
	}

	after := q.active()
	switch {
	case after != before || after.Len() == 0:
		q.currentIndex = -1
	case oldIndex >= after.Len():
		q.currentIndex = after.Len() - 1
	default:
		q.currentIndex = oldIndex
	}
	return true
}

// PushRecent records t as most recently played.
func (q *PlayingQueue) PushRecent(t track.Track) {
	q.recents.Push(t)
}

// Undo restores the previous queue content.
func (q *PlayingQueue) Undo() bool {
	tracks, ok := q.history.Undo()
	if !ok {
		return false
	}
	q.restore(tracks)
	return true
}

// Redo re-applies an undone queue edit.
func (q *PlayingQueue) Redo() bool {
	tracks, ok := q.history.Redo()
	if !ok {
		return false
	}
	q.restore(tracks)
	return true
}

func (q *PlayingQueue) restore(tracks []track.Track) {
	id, ok := q.currentID()
	q.queue.Replace(tracks)
	q.reanchor(id, ok)
}

func (q *PlayingQueue) currentID() (float64, bool) {
	cur := q.Current()
	if cur == nil {
		return 0, false
	}
	return cur.ID, true
}

// reanchor points currentIndex back at id in the (possibly new) active list.
func (q *PlayingQueue) reanchor(id float64, ok bool) {
	if !ok {
		q.currentIndex = -1
		return
	}
	q.currentIndex = q.Locate(id)
}
