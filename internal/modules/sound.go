package modules

import (
	"errors"
	"fmt"

	"github.com/sunteam/sun/internal/cancel"
	"github.com/sunteam/sun/internal/config"
	"github.com/sunteam/sun/internal/notify"
)

// AudioEventKind distinguishes playback from capture events.
type AudioEventKind int

const (
	SinkEvent AudioEventKind = iota
	SourceEvent
)

// AudioEvent reports that something changed on the sound server; the
// worker re-reads the default device to find out what.
type AudioEvent struct {
	Kind AudioEventKind
}

// AudioDevice is a snapshot of one device's state.
type AudioDevice struct {
	Name          string
	Description   string
	VolumePercent int
	Muted         bool
	Bluetooth     bool
	BluezPath     string
}

// same reports whether two snapshots are indistinguishable for
// notification purposes.
func (d AudioDevice) same(o AudioDevice) bool {
	return d.Name == o.Name && d.VolumePercent == o.VolumePercent && d.Muted == o.Muted
}

// AudioSource is the sound server the worker listens to. internal/pulse
// implements it over the PulseAudio D-Bus API.
type AudioSource interface {
	// Poll blocks until events arrive, the timeout elapses
	// (cancel.ErrTimeout), or the token is kicked (cancel.ErrInterrupted).
	// timeoutMsec < 0 waits indefinitely.
	Poll(timeoutMsec int, tok *cancel.Token) ([]AudioEvent, error)
	DefaultSink() (AudioDevice, error)
	DefaultSource() (AudioDevice, error)
	// BluetoothBattery returns the device's battery percentage; ok is
	// false for non-bluetooth devices and before the battery interface
	// has registered.
	BluetoothBattery(dev AudioDevice) (int, bool)
	Close() error
}

// Sound returns the sound monitor worker. open is called once per worker
// life; the source is closed when the worker exits.
func Sound(d Deps, open func() (AudioSource, error)) func(*cancel.Token) error {
	return func(tok *cancel.Token) error {
		src, err := open()
		if err != nil {
			return err
		}
		defer src.Close()

		cfg, err := d.Store.Current()
		if err != nil {
			return err
		}

		sink, err := src.DefaultSink()
		if err != nil {
			return fmt.Errorf("default sink: %w", err)
		}
		source, err := src.DefaultSource()
		if err != nil {
			return fmt.Errorf("default source: %w", err)
		}

		sinkSender := d.NewSender()
		sourceSender := d.NewSender()

		// A bluetooth sink with a battery puts the loop on a periodic
		// timeout so the low-battery warning can repeat.
		timeout := -1
		if _, ok := src.BluetoothBattery(sink); ok {
			timeout = cfg.Sound.SinkBluetoothBatteryPollSeconds * 1000
		}

		for {
			if tok.Stopped() {
				return nil
			}
			cfg, err := d.Store.Current()
			if err != nil {
				return err
			}
			sc := cfg.Sound

			evs, err := src.Poll(timeout, tok)
			switch {
			case err == nil:
				for _, ev := range evs {
					switch ev.Kind {
					case SinkEvent:
						cur, serr := src.DefaultSink()
						if serr != nil {
							return fmt.Errorf("default sink: %w", serr)
						}
						if cur.same(sink) {
							continue
						}
						sink = cur
						timeout = d.showSink(sinkSender, src, sc, sink, false)

					case SourceEvent:
						cur, serr := src.DefaultSource()
						if serr != nil {
							return fmt.Errorf("default source: %w", serr)
						}
						if cur.same(source) {
							continue
						}
						source = cur
						d.showSource(sourceSender, sc, source)
					}
				}

			case errors.Is(err, cancel.ErrTimeout):
				// Periodic battery check; does not advance the sink
				// snapshot, so a real change still notifies later.
				cur, serr := src.DefaultSink()
				if serr != nil {
					return fmt.Errorf("default sink: %w", serr)
				}
				timeout = d.showSink(sinkSender, src, sc, cur, true)

			case errors.Is(err, cancel.ErrInterrupted):
				// Re-read config at the top of the loop.

			default:
				return err
			}
		}
	}
}

// showSink posts the sink notification and returns the next poll timeout:
// the bluetooth battery poll interval when the sink has a battery, -1
// otherwise. With onlyLow set, only a low-battery warning is shown; the
// periodic timeout path uses that to re-warn without spamming volume
// notifications.
func (d Deps) showSink(sender notify.Sender, src AudioSource, sc config.SoundConfig, dev AudioDevice, onlyLow bool) int {
	n := notify.Notification{
		Module:    "sound",
		Summary:   "Sound",
		Body:      "Volume",
		Icon:      sc.IconPath,
		Urgency:   notify.UrgencyNormal,
		TimeoutMs: sc.SinkNotificationTimeoutMs,
		Hints:     map[string]any{"value": int32(dev.VolumePercent)},
	}
	if dev.Bluetooth {
		n.Body = dev.Description
	}

	timeout := -1
	lowBattery := false

	// A freshly connected device may not have registered its battery
	// interface yet; ok turns true on a later poll.
	if pct, ok := src.BluetoothBattery(dev); ok {
		timeout = sc.SinkBluetoothBatteryPollSeconds * 1000
		if pct <= sc.SinkBluetoothLowBatteryWarnAt {
			lowBattery = true
			n.Urgency = notify.UrgencyCritical
			n.TimeoutMs = sc.SinkBluetoothLowBatteryTimeoutMs
			n.Body += fmt.Sprintf(" (%d%%) Low battery", pct)
		} else {
			n.Body += fmt.Sprintf(" (%d%%)", pct)
		}
	}

	switch {
	case dev.Muted:
		n.Summary += " muted"
		n.Icon += sc.SinkMutedIcon
	case timeout >= 0:
		n.Icon += sc.SinkBluetoothIcon
	default:
		n.Icon += sc.SinkIcon
	}

	if !onlyLow || lowBattery {
		if err := sender.Show(n); err != nil {
			d.Logger.Warn("sink notification failed", "error", err)
		}
	}
	return timeout
}

func (d Deps) showSource(sender notify.Sender, sc config.SoundConfig, dev AudioDevice) {
	n := notify.Notification{
		Module:    "sound",
		Summary:   "Mic",
		Body:      "Volume",
		Icon:      sc.IconPath,
		Urgency:   notify.UrgencyNormal,
		TimeoutMs: sc.SourceNotificationTimeoutMs,
		Hints:     map[string]any{"value": int32(dev.VolumePercent)},
	}
	if dev.Muted {
		n.Summary += " muted"
		n.Icon += sc.SourceMutedIcon
	} else {
		n.Icon += sc.SourceIcon
	}
	if err := sender.Show(n); err != nil {
		d.Logger.Warn("source notification failed", "error", err)
	}
}
