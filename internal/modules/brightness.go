package modules

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sunteam/sun/internal/cancel"
	"github.com/sunteam/sun/internal/netlink"
	"github.com/sunteam/sun/internal/notify"
)

// sysfsRoot prefixes devpaths from uevent headers. Variable so tests can
// point it at a fixture tree.
var sysfsRoot = "/sys"

// decodeBacklight accepts only backlight uevents and extracts the device
// path from the header line.
func decodeBacklight(payload []byte) (string, error) {
	if sub, ok := netlink.Subsystem(payload); !ok || sub != "backlight" {
		return "", netlink.Rejectf("non backlight")
	}
	devpath, ok := netlink.Value(payload, "@")
	if !ok {
		return "", netlink.Rejectf("devpath not found")
	}
	return devpath, nil
}

func readSysValue(devpath, name string) (float64, error) {
	data, err := os.ReadFile(sysfsRoot + devpath + "/" + name)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSuffix(string(data), "\n")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// readBacklightPercent reads the device's brightness as a 0-100 percent.
func readBacklightPercent(devpath string) (int, error) {
	cur, err := readSysValue(devpath, "brightness")
	if err != nil {
		return 0, err
	}
	maxV, err := readSysValue(devpath, "max_brightness")
	if err != nil {
		return 0, err
	}
	if maxV <= 0 {
		return 0, errors.New("max_brightness is zero")
	}
	return int(cur / maxV * 100), nil
}

// Brightness returns the backlight monitor worker. It blocks on backlight
// uevents indefinitely and notifies percent changes with a progress hint.
func Brightness(d Deps) func(*cancel.Token) error {
	return func(tok *cancel.Token) error {
		conn, err := netlink.Dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		sender := d.NewSender()
		last := -1

		for {
			if tok.Stopped() {
				return nil
			}
			cfg, err := d.Store.Current()
			if err != nil {
				return err
			}
			bc := cfg.Brightness

			payload, err := conn.Receive(-1, tok)
			switch {
			case err == nil:
				devpath, derr := decodeBacklight(payload)
				if derr != nil {
					continue
				}
				d.uevent("brightness")

				percent, rerr := readBacklightPercent(devpath)
				if rerr != nil {
					return fmt.Errorf("backlight %s: %w", devpath, rerr)
				}
				if percent == last {
					continue
				}
				last = percent

				showErr := sender.Show(notify.Notification{
					Module:    "brightness",
					Summary:   "Brightness",
					Icon:      bc.IconPath + bc.Icon,
					Urgency:   notify.UrgencyNormal,
					TimeoutMs: 3000,
					Hints:     map[string]any{"value": int32(percent)},
				})
				if showErr != nil {
					d.Logger.Warn("brightness notification failed", "error", showErr)
				}

			case errors.Is(err, cancel.ErrInterrupted), errors.Is(err, cancel.ErrTimeout):
				// Re-read config at the top of the loop.

			default:
				return err
			}
		}
	}
}
