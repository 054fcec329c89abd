// Package modules implements the monitor worker loops: battery,
// brightness, keyboard layout, and sound. Each worker blocks on its OS
// subsystem, posts desktop notifications on change, and exits when its
// cancellation token is stopped.
package modules

import (
	"log/slog"

	"github.com/sunteam/sun/internal/config"
	"github.com/sunteam/sun/internal/events"
	"github.com/sunteam/sun/internal/notify"
)

// Deps are the collaborators shared by every worker.
type Deps struct {
	Store *config.Store
	// NewSender returns a fresh notification sender. Workers that update
	// a notification in place get one handle each, so their notifications
	// replace rather than stack.
	NewSender func() notify.Sender
	Bus       *events.Bus
	Logger    *slog.Logger
}

func (d Deps) uevent(module string) {
	if d.Bus == nil {
		return
	}
	d.Bus.Publish(events.Event{
		Type: events.UeventReceived,
		Data: map[string]string{"module": module},
	})
}
