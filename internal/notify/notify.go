// Package notify posts desktop notifications through the
// org.freedesktop.Notifications D-Bus service.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/sunteam/sun/internal/events"
)

// Urgency levels per the Desktop Notifications spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification describes one notification.
type Notification struct {
	Module    string // originating module, for lifecycle events; may be empty
	Summary   string
	Body      string
	Icon      string
	Urgency   Urgency
	TimeoutMs int            // -1 = server default, 0 = never expire
	Hints     map[string]any // extra hints, e.g. "value" for progress bars
}

// Sender posts desktop notifications.
type Sender interface {
	Show(n Notification) error
}

// callTimeout bounds every D-Bus round trip so a stuck notification daemon
// cannot wedge a worker or the fault path.
const callTimeout = 3 * time.Second

// Client connects to the session bus notification service.
type Client struct {
	obj dbus.BusObject
	bus *events.Bus
}

// NewClient connects to the session bus. The event bus is optional and
// receives a NotificationShown event per successful Show.
func NewClient(bus *events.Bus) (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	return &Client{
		obj: conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications"),
		bus: bus,
	}, nil
}

// Show posts a one-shot notification.
func (c *Client) Show(n Notification) error {
	_, err := c.notify(n, 0)
	return err
}

// NewHandle returns a Sender that updates one on-screen notification in
// place instead of stacking new ones, by reusing the notification ID.
func (c *Client) NewHandle() *Handle {
	return &Handle{client: c}
}

// Handle is a reusable notification owned by a single worker. Not safe for
// concurrent use.
type Handle struct {
	client *Client
	id     uint32
}

// Show posts the notification, replacing this handle's previous one.
func (h *Handle) Show(n Notification) error {
	id, err := h.client.notify(n, h.id)
	if err != nil {
		return err
	}
	h.id = id
	return nil
}

func (c *Client) notify(n Notification, replaces uint32) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(n.Urgency)),
	}
	for k, v := range n.Hints {
		hints[k] = dbus.MakeVariant(v)
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	var id uint32
	err := c.obj.CallWithContext(ctx, "org.freedesktop.Notifications.Notify", 0,
		"sun", replaces, n.Icon, n.Summary, n.Body,
		[]string{}, hints, int32(n.TimeoutMs),
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}

	if c.bus != nil {
		c.bus.Publish(events.Event{
			Type: events.NotificationShown,
			Data: map[string]string{"module": n.Module},
		})
	}
	return id, nil
}
