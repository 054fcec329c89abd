// Package pulse adapts the PulseAudio D-Bus API to the sound module's
// AudioSource interface. The server publishes its private socket address
// through ServerLookup1 on the session bus; device state and change
// signals then flow over a peer connection to that socket. Bluetooth
// battery levels come from BlueZ on the system bus.
package pulse

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/sunteam/sun/internal/cancel"
	"github.com/sunteam/sun/internal/modules"
)

const (
	corePath      = dbus.ObjectPath("/org/pulseaudio/core1")
	coreInterface = "org.PulseAudio.Core1"
	deviceIface   = "org.PulseAudio.Core1.Device"
)

// The signals the worker reacts to. Everything else stays unsubscribed on
// the server side.
var listenSignals = []string{
	coreInterface + ".Device.VolumeUpdated",
	coreInterface + ".Device.MuteUpdated",
	coreInterface + ".FallbackSinkUpdated",
	coreInterface + ".FallbackSourceUpdated",
}

// Source is a live connection to the PulseAudio server.
type Source struct {
	conn    *dbus.Conn // peer connection to the server's private socket
	system  *dbus.Conn // shared system bus, for BlueZ battery queries
	core    dbus.BusObject
	signals chan *dbus.Signal
}

func serverAddress() (string, error) {
	session, err := dbus.SessionBus()
	if err != nil {
		return "", fmt.Errorf("session bus: %w", err)
	}
	obj := session.Object("org.PulseAudio1", "/org/pulseaudio/server_lookup1")
	v, err := obj.GetProperty("org.PulseAudio.ServerLookup1.Address")
	if err != nil {
		return "", fmt.Errorf("pulse server lookup: %w", err)
	}
	addr, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("pulse server address: unexpected type %T", v.Value())
	}
	return addr, nil
}

// Open connects to the PulseAudio server and subscribes to device and
// fallback-device change signals.
func Open() (*Source, error) {
	addr, err := serverAddress()
	if err != nil {
		return nil, err
	}

	conn, err := dbus.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("pulse dial: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pulse auth: %w", err)
	}

	core := conn.Object(coreInterface, corePath)
	for _, sig := range listenSignals {
		call := core.Call(coreInterface+".ListenForSignal", 0, sig, []dbus.ObjectPath{})
		if call.Err != nil {
			conn.Close()
			return nil, fmt.Errorf("pulse listen %s: %w", sig, call.Err)
		}
	}

	signals := make(chan *dbus.Signal, 64)
	conn.Signal(signals)

	// Battery queries are best effort; the source still works without
	// the system bus.
	system, err := dbus.SystemBus()
	if err != nil {
		system = nil
	}

	return &Source{
		conn:    conn,
		system:  system,
		core:    core,
		signals: signals,
	}, nil
}

// Poll blocks until at least one change signal arrives, then drains
// whatever else is already queued.
func (s *Source) Poll(timeoutMsec int, tok *cancel.Token) ([]modules.AudioEvent, error) {
	var timer <-chan time.Time
	if timeoutMsec >= 0 {
		t := time.NewTimer(time.Duration(timeoutMsec) * time.Millisecond)
		defer t.Stop()
		timer = t.C
	}

	var kicked <-chan struct{}
	if tok != nil {
		kicked = tok.Kicked()
	}

	select {
	case sig, ok := <-s.signals:
		if !ok {
			return nil, errors.New("pulse connection closed")
		}
		evs := []modules.AudioEvent{eventFor(sig)}
		for {
			select {
			case sig, ok := <-s.signals:
				if !ok {
					return evs, nil
				}
				evs = append(evs, eventFor(sig))
			default:
				return evs, nil
			}
		}

	case <-kicked:
		return nil, cancel.ErrInterrupted

	case <-timer:
		return nil, cancel.ErrTimeout
	}
}

// eventFor classifies a signal as a sink or source event. Device object
// paths carry the device kind ("/org/pulseaudio/core1/sink0").
func eventFor(sig *dbus.Signal) modules.AudioEvent {
	if strings.Contains(string(sig.Path), "/source") ||
		strings.HasSuffix(sig.Name, "FallbackSourceUpdated") {
		return modules.AudioEvent{Kind: modules.SourceEvent}
	}
	return modules.AudioEvent{Kind: modules.SinkEvent}
}

// DefaultSink snapshots the current fallback sink.
func (s *Source) DefaultSink() (modules.AudioDevice, error) {
	return s.device("FallbackSink")
}

// DefaultSource snapshots the current fallback source.
func (s *Source) DefaultSource() (modules.AudioDevice, error) {
	return s.device("FallbackSource")
}

func (s *Source) device(prop string) (modules.AudioDevice, error) {
	var dev modules.AudioDevice

	v, err := s.core.GetProperty(coreInterface + "." + prop)
	if err != nil {
		return dev, fmt.Errorf("pulse %s: %w", prop, err)
	}
	path, ok := v.Value().(dbus.ObjectPath)
	if !ok {
		return dev, fmt.Errorf("pulse %s: unexpected type %T", prop, v.Value())
	}
	obj := s.conn.Object(coreInterface, path)

	if v, err = obj.GetProperty(deviceIface + ".Name"); err != nil {
		return dev, fmt.Errorf("pulse device name: %w", err)
	}
	dev.Name, _ = v.Value().(string)

	if v, err = obj.GetProperty(deviceIface + ".Volume"); err != nil {
		return dev, fmt.Errorf("pulse device volume: %w", err)
	}
	vols, _ := v.Value().([]uint32)
	dev.VolumePercent = volumePercent(vols)

	if v, err = obj.GetProperty(deviceIface + ".Mute"); err != nil {
		return dev, fmt.Errorf("pulse device mute: %w", err)
	}
	dev.Muted, _ = v.Value().(bool)

	if v, err = obj.GetProperty(deviceIface + ".PropertyList"); err != nil {
		return dev, fmt.Errorf("pulse device properties: %w", err)
	}
	props, _ := v.Value().(map[string][]byte)
	dev.Description = propString(props, "device.description")
	if propString(props, "device.bus") == "bluetooth" {
		dev.Bluetooth = true
		dev.BluezPath = propString(props, "api.bluez5.path")
	}

	return dev, nil
}

// BluetoothBattery asks BlueZ for the device's battery percentage. ok is
// false for non-bluetooth devices and while the Battery1 interface has
// not registered yet, which happens briefly after a device connects.
func (s *Source) BluetoothBattery(dev modules.AudioDevice) (int, bool) {
	if s.system == nil || dev.BluezPath == "" {
		return 0, false
	}
	obj := s.system.Object("org.bluez", dbus.ObjectPath(dev.BluezPath))
	v, err := obj.GetProperty("org.bluez.Battery1.Percentage")
	if err != nil {
		return 0, false
	}
	pct, ok := v.Value().(byte)
	if !ok {
		return 0, false
	}
	return int(pct), true
}

// Close tears down the peer connection. The shared system bus connection
// is left open for other users.
func (s *Source) Close() error {
	return s.conn.Close()
}

// volumePercent converts a per-channel PulseAudio volume to an averaged
// 0-100 percent. 0x10000 is the server's "normal" (100%) volume.
func volumePercent(vols []uint32) int {
	if len(vols) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range vols {
		sum += uint64(v)
	}
	avg := sum / uint64(len(vols))

	const norm = 0x10000
	return int((avg*100 + norm/2) / norm)
}

// propString reads a PulseAudio property list value. Values arrive as
// NUL-terminated byte strings.
func propString(props map[string][]byte, key string) string {
	return string(bytes.TrimRight(props[key], "\x00"))
}
