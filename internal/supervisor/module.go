package supervisor

import "github.com/sunteam/sun/internal/config"

// Module identifies one monitor. The set is closed; it doubles as the
// registry key and as the label on lifecycle events and notifications.
type Module int

const (
	Sound Module = iota
	Battery
	Keyboard
	Brightness
)

// applyOrder is the fixed order in which a config snapshot is applied to
// the registry.
var applyOrder = []Module{Sound, Battery, Keyboard, Brightness}

func (m Module) String() string {
	switch m {
	case Sound:
		return "sound"
	case Battery:
		return "battery"
	case Keyboard:
		return "keyboard"
	case Brightness:
		return "brightness"
	default:
		return "unknown"
	}
}

// enabled reports whether the snapshot wants this module running.
func (m Module) enabled(cfg *config.Config) bool {
	switch m {
	case Sound:
		return !cfg.Sound.Off
	case Battery:
		return !cfg.Battery.Off
	case Keyboard:
		return !cfg.Keyboard.Off
	case Brightness:
		return !cfg.Brightness.Off
	default:
		return false
	}
}
