package playlist

import (
	"testing"

	"github.com/llehouerou/ripple/internal/track"
)

func titled(title string) []track.Track {
	return []track.Track{{Title: title}}
}

func TestNewQueueHistory(t *testing.T) {
	h := NewQueueHistory(10)

	if h.CanUndo() {
		t.Error("new history should not be able to undo")
	}
	if h.CanRedo() {
		t.Error("new history should not be able to redo")
	}
}

func TestQueueHistory_Undo(t *testing.T) {
	h := NewQueueHistory(10)

	h.Push(titled("a"))
	if h.CanUndo() {
		t.Error("after first push, should not be able to undo")
	}
	h.Push(titled("b"))

	restored, ok := h.Undo()
	if !ok {
		t.Fatal("Undo should succeed")
	}
	if len(restored) != 1 || restored[0].Title != "a" {
		t.Errorf("restored = %v, want [a]", restored)
	}
}

func TestQueueHistory_Empty(t *testing.T) {
	h := NewQueueHistory(10)

	if restored, ok := h.Undo(); ok || restored != nil {
		t.Error("Undo on empty history should return nil, false")
	}
	if restored, ok := h.Redo(); ok || restored != nil {
		t.Error("Redo on empty history should return nil, false")
	}
}

func TestQueueHistory_PushClearsRedo(t *testing.T) {
	h := NewQueueHistory(10)
	h.Push(titled("a"))
	h.Push(titled("b"))
	h.Push(titled("c"))
	h.Undo()
	h.Undo()

	h.Push(titled("d"))

	if h.CanRedo() {
		t.Error("push should clear redo states")
	}
	restored, _ := h.Undo()
	if restored[0].Title != "a" {
		t.Errorf("should undo to a, got %q", restored[0].Title)
	}
}

func TestQueueHistory_MaxSize(t *testing.T) {
	h := NewQueueHistory(3)

	for _, s := range []string{"a", "b", "c", "d"} {
		h.Push(titled(s))
	}
	h.Undo()
	h.Undo()

	if h.CanUndo() {
		t.Error("should not be able to undo past max size")
	}
}

func TestQueueHistory_ReturnsCopy(t *testing.T) {
	h := NewQueueHistory(10)
	h.Push(titled("a"))
	h.Push(titled("b"))

	restored, _ := h.Undo()
	restored[0].Title = "modified"

	h.Push(titled("c"))
	again, _ := h.Undo()
	if again[0].Title != "a" {
		t.Errorf("history should store copies, got %q", again[0].Title)
	}
}
