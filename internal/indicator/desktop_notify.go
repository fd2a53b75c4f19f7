package indicator

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName   = "org.freedesktop.Notifications"
	notificationsPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsNotify = notificationsName + ".Notify"
)

// busNotifier calls org.freedesktop.Notifications on the session bus.
type busNotifier struct{}

func (busNotifier) Notify(ctx context.Context, appName string, replaceID uint32, summary string, body string, timeoutMS int) (uint32, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("desktop notify: connect session bus: %w", err)
	}
	defer conn.Close()

	call := conn.Object(notificationsName, notificationsPath).CallWithContext(
		ctx,
		notificationsNotify,
		0,
		appName,
		replaceID,
		"",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		int32(timeoutMS),
	)
	if call.Err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("desktop notify invalid response: %w", err)
	}
	return id, nil
}
