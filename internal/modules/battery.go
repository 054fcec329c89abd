package modules

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sunteam/sun/internal/cancel"
	"github.com/sunteam/sun/internal/config"
	"github.com/sunteam/sun/internal/netlink"
	"github.com/sunteam/sun/internal/notify"
)

// batterySysPath is where the kernel exposes the primary battery state.
// Variable so tests can point it at a fixture.
var batterySysPath = "/sys/class/power_supply/BAT0/uevent"

// Battery status strings as reported by the kernel.
const (
	statusCharging    = "Charging"
	statusDischarging = "Discharging"
	statusFull        = "Full"
)

type powerSupplyState struct {
	Status   string
	Capacity int
}

// parsePowerSupply extracts status and capacity from a power_supply uevent
// file. Capacity comes from POWER_SUPPLY_CAPACITY when present, otherwise
// it is derived from ENERGY_NOW / ENERGY_FULL.
func parsePowerSupply(data []byte) (powerSupplyState, error) {
	var st powerSupplyState

	status, ok := netlink.Value(data, "POWER_SUPPLY_STATUS")
	if !ok {
		return st, errors.New("POWER_SUPPLY_STATUS missing")
	}
	st.Status = status

	if capStr, ok := netlink.Value(data, "POWER_SUPPLY_CAPACITY"); ok {
		c, err := strconv.Atoi(capStr)
		if err != nil {
			return st, fmt.Errorf("bad POWER_SUPPLY_CAPACITY: %w", err)
		}
		st.Capacity = c
		return st, nil
	}

	nowStr, ok := netlink.Value(data, "POWER_SUPPLY_ENERGY_NOW")
	if !ok {
		return st, errors.New("POWER_SUPPLY_ENERGY_NOW missing")
	}
	fullStr, ok := netlink.Value(data, "POWER_SUPPLY_ENERGY_FULL")
	if !ok {
		return st, errors.New("POWER_SUPPLY_ENERGY_FULL missing")
	}
	now, err := strconv.ParseFloat(nowStr, 64)
	if err != nil {
		return st, fmt.Errorf("bad POWER_SUPPLY_ENERGY_NOW: %w", err)
	}
	full, err := strconv.ParseFloat(fullStr, 64)
	if err != nil {
		return st, fmt.Errorf("bad POWER_SUPPLY_ENERGY_FULL: %w", err)
	}
	if full <= 0 {
		return st, errors.New("POWER_SUPPLY_ENERGY_FULL is zero")
	}
	st.Capacity = int(now / full * 100)
	return st, nil
}

func readPowerSupply() (powerSupplyState, error) {
	data, err := os.ReadFile(batterySysPath)
	if err != nil {
		return powerSupplyState{}, err
	}
	return parsePowerSupply(data)
}

// decodePowerSupply accepts only power_supply broadcast uevents.
func decodePowerSupply(payload []byte) error {
	if sub, ok := netlink.Subsystem(payload); !ok || sub != "power_supply" {
		return netlink.Rejectf("non power_supply")
	}
	return nil
}

func dynamicIcon(p *bool) bool {
	return p == nil || *p
}

// batteryIcon picks the icon for a status, substituting the {level}
// placeholder for dynamic icons. Level is the capacity rounded down to
// tens, floored at 10. ok is false for statuses with no icon.
func batteryIcon(bc config.BatteryConfig, status string, capacity int) (string, bool) {
	level := strconv.Itoa(max(capacity/10, 1) * 10)
	switch status {
	case statusDischarging:
		if dynamicIcon(bc.DynamicDischargingIcon) {
			return strings.ReplaceAll(bc.DischargingIcon, "{level}", level), true
		}
		return bc.DischargingIcon, true
	case statusCharging:
		if dynamicIcon(bc.DynamicChargingIcon) {
			return strings.ReplaceAll(bc.ChargingIcon, "{level}", level), true
		}
		return bc.ChargingIcon, true
	case statusFull:
		return bc.FullIcon, true
	default:
		return "", false
	}
}

// Battery returns the battery monitor worker. It watches power_supply
// uevents for status changes and uses the poll timeout to detect a full
// battery and to warn when discharging below the configured threshold.
func Battery(d Deps) func(*cancel.Token) error {
	return func(tok *cancel.Token) error {
		conn, err := netlink.Dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		st, err := readPowerSupply()
		if err != nil {
			return fmt.Errorf("battery state: %w", err)
		}
		last := st.Status
		full := false

		sender := d.NewSender()

		for {
			if tok.Stopped() {
				return nil
			}
			cfg, err := d.Store.Current()
			if err != nil {
				return err
			}
			bc := cfg.Battery

			timeout := bc.PollSeconds * 1000
			if full {
				// Nothing to poll for until the charger comes off;
				// wait for the next uevent.
				timeout = -1
			}

			payload, err := conn.Receive(timeout, tok)
			switch {
			case err == nil:
				if decodePowerSupply(payload) != nil {
					continue
				}
				d.uevent("battery")

				st, rerr := readPowerSupply()
				if rerr != nil {
					d.Logger.Warn("battery state read failed", "error", rerr)
					continue
				}
				if st.Status == last {
					continue
				}
				full = false
				last = st.Status

				icon, ok := batteryIcon(bc, st.Status, st.Capacity)
				if !ok {
					d.Logger.Info("unknown battery status", "status", st.Status)
					continue
				}
				showErr := sender.Show(notify.Notification{
					Module:    "battery",
					Summary:   "Battery",
					Body:      st.Status,
					Icon:      bc.IconPath + icon,
					Urgency:   notify.UrgencyNormal,
					TimeoutMs: 2500,
				})
				if showErr != nil {
					d.Logger.Warn("battery notification failed", "error", showErr)
				}

			case errors.Is(err, cancel.ErrTimeout):
				st, rerr := readPowerSupply()
				if rerr != nil {
					return fmt.Errorf("battery state: %w", rerr)
				}

				if !full && st.Status == statusFull {
					full = true
					showErr := sender.Show(notify.Notification{
						Module:    "battery",
						Summary:   "Battery",
						Body:      "Battery is full",
						Icon:      bc.IconPath + bc.FullIcon,
						Urgency:   notify.UrgencyNormal,
						TimeoutMs: 0,
					})
					if showErr != nil {
						d.Logger.Warn("battery notification failed", "error", showErr)
					}
					continue
				}

				if st.Status == statusDischarging && st.Capacity <= bc.WarnAt {
					showErr := sender.Show(notify.Notification{
						Module:    "battery",
						Summary:   "Battery",
						Body:      fmt.Sprintf("%d%% left, connect charger", st.Capacity),
						Icon:      bc.IconPath + bc.LowIcon,
						Urgency:   notify.UrgencyCritical,
						TimeoutMs: 0,
					})
					if showErr != nil {
						d.Logger.Warn("battery notification failed", "error", showErr)
					}
				}

			case errors.Is(err, cancel.ErrInterrupted):
				// Re-read config at the top of the loop.

			default:
				return err
			}
		}
	}
}
