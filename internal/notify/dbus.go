//go:build linux

package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/logger"
)

const (
	busName   = "org.freedesktop.Notifications"
	busPath   = "/org/freedesktop/Notifications"
	busMethod = busName + ".Notify"
	busClose  = busName + ".CloseNotification"

	appName    = "Ripple"
	urgencyLow = byte(0)
)

// busDisplay shows cards through the freedesktop notification service,
// reusing one notification id so track changes update it in place.
type busDisplay struct {
	obj dbus.BusObject

	mu    sync.Mutex
	shown uint32
}

// New connects to the session bus. Without one, cards are dropped.
func New() Display {
	conn, err := dbus.SessionBus()
	if err != nil {
		logger.Debug("notify: no session bus, notifications off", zap.Error(err))
		return discard{}
	}
	return &busDisplay{obj: conn.Object(busName, busPath)}
}

func (d *busDisplay) Show(c Card) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// transient keeps track changes out of the notification history.
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(urgencyLow),
		"desktop-entry": dbus.MakeVariant("ripple"),
		"transient":     dbus.MakeVariant(true),
	}
	var id uint32
	err := d.obj.Call(busMethod, 0, appName, d.shown, c.Icon, c.Title, c.Body, []string{}, hints, c.Timeout).Store(&id)
	if err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	d.shown = id
	return nil
}

func (d *busDisplay) Hide() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shown == 0 {
		return nil
	}
	id := d.shown
	d.shown = 0
	if err := d.obj.Call(busClose, 0, id).Err; err != nil {
		return fmt.Errorf("hide notification %d: %w", id, err)
	}
	return nil
}
