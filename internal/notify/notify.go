// Package notify shows the playing track as a desktop notification.
package notify

// Card is the content of the now-playing notification.
type Card struct {
	Title   string
	Body    string // "Artist · Folder"
	Icon    string // image path or freedesktop icon name
	Timeout int32  // ms, -1 leaves it to the server
}

// Display keeps at most one card on screen. Show replaces the card shown
// before; Hide takes it down.
type Display interface {
	Show(c Card) error
	Hide() error
}

// discard is the Display used without a notification server.
type discard struct{}

func (discard) Show(Card) error { return nil }
func (discard) Hide() error     { return nil }
