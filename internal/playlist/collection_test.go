package playlist

import (
	"testing"

	"github.com/llehouerou/ripple/internal/track"
)

func tr(id float64) track.Track {
	return track.Track{ID: id, Title: "t"}
}

func ids(tracks []track.Track) []float64 {
	out := make([]float64, len(tracks))
	for i := range tracks {
		out[i] = tracks[i].ID
	}
	return out
}

func equalIDs(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCollection_AddDeduplicates(t *testing.T) {
	c := NewCollection(tr(1), tr(2), tr(1))

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if added := c.Add(tr(2), tr(3)); added != 1 {
		t.Errorf("Add returned %d, want 1", added)
	}
	if got := ids(c.Tracks()); !equalIDs(got, []float64{1, 2, 3}) {
		t.Errorf("ids = %v, want [1 2 3]", got)
	}
}

func TestCollection_DuplicateTitlesAllowed(t *testing.T) {
	c := NewCollection(track.Track{ID: 1, Title: "Same"}, track.Track{ID: 2, Title: "Same"})
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCollection_Insert(t *testing.T) {
	c := NewCollection(tr(1), tr(3))

	if !c.Insert(1, tr(2)) {
		t.Fatal("Insert should succeed")
	}
	if c.Insert(0, tr(2)) {
		t.Error("Insert of existing id should fail")
	}
	c.Insert(99, tr(4))

	if got := ids(c.Tracks()); !equalIDs(got, []float64{1, 2, 3, 4}) {
		t.Errorf("ids = %v, want [1 2 3 4]", got)
	}
}

func TestCollection_UpsertAndRemove(t *testing.T) {
	c := NewCollection(tr(1), tr(2))

	c.Upsert(track.Track{ID: 2, Title: "renamed"})
	if c.At(1).Title != "renamed" {
		t.Errorf("Upsert did not replace in place: %+v", c.At(1))
	}

	if i := c.Remove(1); i != 0 {
		t.Errorf("Remove returned %d, want 0", i)
	}
	if i := c.Remove(1); i != -1 {
		t.Errorf("second Remove returned %d, want -1", i)
	}
	if c.At(5) != nil || c.At(-1) != nil {
		t.Error("At out of range should be nil")
	}
}

func TestCollection_TracksReturnsCopy(t *testing.T) {
	c := NewCollection(tr(1))
	got := c.Tracks()
	got[0].Title = "changed"
	if c.At(0).Title == "changed" {
		t.Error("Tracks should return a copy")
	}
}

func TestRecents(t *testing.T) {
	r := NewRecents(3)
	r.Push(tr(1))
	r.Push(tr(2))
	r.Push(tr(1))

	if got := ids(r.Tracks()); !equalIDs(got, []float64{1, 2}) {
		t.Errorf("ids = %v, want [1 2]", got)
	}

	r.Push(tr(3))
	r.Push(tr(4))
	if got := ids(r.Tracks()); !equalIDs(got, []float64{4, 3, 1}) {
		t.Errorf("ids = %v, want [4 3 1]", got)
	}
}

func TestRecents_DefaultLimit(t *testing.T) {
	r := NewRecents(RecentsLimit)
	for i := range 30 {
		r.Push(tr(float64(i)))
	}
	if r.Len() != 20 {
		t.Errorf("Len() = %d, want 20", r.Len())
	}
	if r.Tracks()[0].ID != 29 {
		t.Errorf("most recent = %v, want 29", r.Tracks()[0].ID)
	}
}

func TestRecents_KeepsTransientPayloadOnly(t *testing.T) {
	r := NewRecents(5)
	payload := &track.Payload{Data: []byte{1}}
	r.Push(track.Track{ID: 1, Payload: payload})
	r.Push(track.Track{ID: 2, Payload: payload, Transient: true})

	got := r.Tracks()
	if got[0].Payload == nil {
		t.Error("transient track should keep its payload")
	}
	if got[1].Payload != nil {
		t.Error("library track payload should be dropped")
	}
}
