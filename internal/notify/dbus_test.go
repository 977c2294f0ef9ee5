//go:build linux

package notify

import (
	"os"
	"testing"
)

func TestBusDisplay_ShowReplaceHide(t *testing.T) {
	// Needs a notification daemon on the session bus
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}

	d, ok := New().(*busDisplay)
	if !ok {
		t.Skip("session bus unreachable")
	}
	if err := d.Show(Card{Title: "Ripple Test", Body: "Artist · Folder", Icon: DefaultIcon, Timeout: 1000}); err != nil {
		t.Fatalf("Show() error: %v", err)
	}
	first := d.shown
	if err := d.Show(Card{Title: "Ripple Test 2", Icon: DefaultIcon, Timeout: 1000}); err != nil {
		t.Fatalf("replacing Show() error: %v", err)
	}
	if first != 0 && d.shown != first {
		t.Errorf("replacing card got id=%d, want %d", d.shown, first)
	}
	if err := d.Hide(); err != nil {
		t.Errorf("Hide() error: %v", err)
	}
	if d.shown != 0 {
		t.Errorf("id after Hide = %d, want 0", d.shown)
	}
	if err := d.Hide(); err != nil {
		t.Errorf("second Hide() error: %v", err)
	}
}
