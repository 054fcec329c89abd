package config

import (
	"fmt"
	"strings"
)

// validLogLevels lists the supported log levels.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// validLogFormats lists the supported log formats. Empty means "pick by
// terminal".
var validLogFormats = map[string]bool{
	"": true, "json": true, "text": true,
}

// Validate checks the config for semantic errors and returns all of them.
func Validate(cfg *Config) []error {
	var errs []error

	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error, got %q", cfg.Log.Level))
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format))
	}

	if cfg.Metrics.Enabled && strings.TrimSpace(cfg.Metrics.Listen) == "" {
		errs = append(errs, fmt.Errorf("metrics.listen is required when metrics.enabled is true"))
	}

	if cfg.Battery.WarnAt < 0 || cfg.Battery.WarnAt > 100 {
		errs = append(errs, fmt.Errorf("battery.warn_at must be between 0 and 100, got %d", cfg.Battery.WarnAt))
	}
	if cfg.Battery.PollSeconds < 1 {
		errs = append(errs, fmt.Errorf("battery.poll_seconds must be >= 1, got %d", cfg.Battery.PollSeconds))
	}

	if cfg.Sound.SinkBluetoothLowBatteryWarnAt < 0 || cfg.Sound.SinkBluetoothLowBatteryWarnAt > 100 {
		errs = append(errs, fmt.Errorf("sound.sink_bluetooth_low_battery_warn_at must be between 0 and 100, got %d",
			cfg.Sound.SinkBluetoothLowBatteryWarnAt))
	}
	if cfg.Sound.SinkBluetoothBatteryPollSeconds < 1 {
		errs = append(errs, fmt.Errorf("sound.sink_bluetooth_battery_poll_seconds must be >= 1, got %d",
			cfg.Sound.SinkBluetoothBatteryPollSeconds))
	}
	for _, to := range []struct {
		name string
		val  int
	}{
		{"sound.sink_notification_timeout_ms", cfg.Sound.SinkNotificationTimeoutMs},
		{"sound.source_notification_timeout_ms", cfg.Sound.SourceNotificationTimeoutMs},
		{"sound.sink_bluetooth_low_battery_timeout_ms", cfg.Sound.SinkBluetoothLowBatteryTimeoutMs},
	} {
		if to.val < -1 {
			errs = append(errs, fmt.Errorf("%s must be >= -1, got %d", to.name, to.val))
		}
	}

	return errs
}
