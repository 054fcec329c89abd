// Package config handles loading and validating sun configuration.
package config

// Config is the top-level sun configuration. A loaded Config is an
// immutable snapshot: it is published wholesale through a Store and never
// edited in place after that.
type Config struct {
	ErrorIcon  string           `toml:"error_icon"`
	Log        LogConfig        `toml:"log"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Sound      SoundConfig      `toml:"sound"`
	Battery    BatteryConfig    `toml:"battery"`
	Keyboard   KeyboardConfig   `toml:"keyboard"`
	Brightness BrightnessConfig `toml:"brightness"`
}

// LogConfig holds daemon logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// SoundConfig holds settings for the sound monitor.
type SoundConfig struct {
	Off                              bool   `toml:"off"`
	IconPath                         string `toml:"icon_path"`
	SinkIcon                         string `toml:"sink_icon"`
	SinkMutedIcon                    string `toml:"sink_muted_icon"`
	SinkBluetoothIcon                string `toml:"sink_bluetooth_icon"`
	SinkBluetoothBatteryPollSeconds  int    `toml:"sink_bluetooth_battery_poll_seconds"`
	SinkBluetoothLowBatteryWarnAt    int    `toml:"sink_bluetooth_low_battery_warn_at"`
	SinkBluetoothLowBatteryTimeoutMs int    `toml:"sink_bluetooth_low_battery_timeout_ms"`
	SinkNotificationTimeoutMs        int    `toml:"sink_notification_timeout_ms"`
	SourceIcon                       string `toml:"source_icon"`
	SourceMutedIcon                  string `toml:"source_muted_icon"`
	SourceNotificationTimeoutMs      int    `toml:"source_notification_timeout_ms"`
}

// BatteryConfig holds settings for the battery monitor.
type BatteryConfig struct {
	Off                   bool   `toml:"off"`
	IconPath              string `toml:"icon_path"`
	FullIcon              string `toml:"full_icon"`
	LowIcon               string `toml:"low_icon"`
	ChargingIcon          string `toml:"charging_icon"`
	DynamicChargingIcon   *bool  `toml:"dynamic_charging_icon"`
	DischargingIcon       string `toml:"discharging_icon"`
	DynamicDischargingIcon *bool `toml:"dynamic_discharging_icon"`
	PollSeconds           int    `toml:"poll_seconds"`
	WarnAt                int    `toml:"warn_at"`
}

// KeyboardConfig holds settings for the keyboard layout monitor.
type KeyboardConfig struct {
	Off      bool   `toml:"off"`
	IconPath string `toml:"icon_path"`
	Icon     string `toml:"icon"`
}

// BrightnessConfig holds settings for the backlight monitor.
type BrightnessConfig struct {
	Off      bool   `toml:"off"`
	IconPath string `toml:"icon_path"`
	Icon     string `toml:"icon"`
}
