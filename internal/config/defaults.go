package config

// Default icon locations, matching the Adwaita symbolic icon theme.
const (
	DefaultIconPath = "/usr/share/icons/Adwaita/symbolic/"

	DefaultErrorIcon = "status/dialog-error-symbolic.svg"

	DefaultSinkIcon          = "status/audio-volume-high-symbolic.svg"
	DefaultSinkMutedIcon     = "status/audio-volume-muted-symbolic.svg"
	DefaultSinkBluetoothIcon = "status/audio-volume-high-symbolic.svg"

	DefaultSourceIcon      = "status/microphone-sensetivity-high-symbolic.svg"
	DefaultSourceMutedIcon = "status/microphone-sensetivity-muted-symbolic.svg"

	DefaultKeyboardIcon = "devices/input-keyboard-symbolic.svg"

	DefaultBrightnessIcon = "status/display-brightness-symbolic.svg"

	DefaultBatteryFullIcon        = "status/battery-level-100-charged-symbolic.svg"
	DefaultBatteryLowIcon         = "status/battery-caution-symbolic.svg"
	DefaultBatteryChargingIcon    = "status/battery-level-{level}-charging-symbolic.svg"
	DefaultBatteryDischargingIcon = "status/battery-level-{level}-symbolic.svg"
)

// ApplyDefaults fills in zero-value fields with their default values.
func ApplyDefaults(cfg *Config) {
	t := true

	if cfg.ErrorIcon == "" {
		cfg.ErrorIcon = DefaultIconPath + DefaultErrorIcon
	}

	// Log defaults. An empty format means "pick by terminal" downstream.
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Metrics defaults.
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = "127.0.0.1:9189"
	}

	// Sound defaults.
	if cfg.Sound.IconPath == "" {
		cfg.Sound.IconPath = DefaultIconPath
	}
	if cfg.Sound.SinkIcon == "" {
		cfg.Sound.SinkIcon = DefaultSinkIcon
	}
	if cfg.Sound.SinkMutedIcon == "" {
		cfg.Sound.SinkMutedIcon = DefaultSinkMutedIcon
	}
	if cfg.Sound.SinkBluetoothIcon == "" {
		cfg.Sound.SinkBluetoothIcon = DefaultSinkBluetoothIcon
	}
	if cfg.Sound.SinkBluetoothBatteryPollSeconds == 0 {
		cfg.Sound.SinkBluetoothBatteryPollSeconds = 30
	}
	if cfg.Sound.SinkBluetoothLowBatteryWarnAt == 0 {
		cfg.Sound.SinkBluetoothLowBatteryWarnAt = 15
	}
	if cfg.Sound.SinkBluetoothLowBatteryTimeoutMs == 0 {
		cfg.Sound.SinkBluetoothLowBatteryTimeoutMs = -1
	}
	if cfg.Sound.SinkNotificationTimeoutMs == 0 {
		cfg.Sound.SinkNotificationTimeoutMs = 2500
	}
	if cfg.Sound.SourceIcon == "" {
		cfg.Sound.SourceIcon = DefaultSourceIcon
	}
	if cfg.Sound.SourceMutedIcon == "" {
		cfg.Sound.SourceMutedIcon = DefaultSourceMutedIcon
	}
	if cfg.Sound.SourceNotificationTimeoutMs == 0 {
		cfg.Sound.SourceNotificationTimeoutMs = 2500
	}

	// Battery defaults.
	if cfg.Battery.IconPath == "" {
		cfg.Battery.IconPath = DefaultIconPath
	}
	if cfg.Battery.FullIcon == "" {
		cfg.Battery.FullIcon = DefaultBatteryFullIcon
	}
	if cfg.Battery.LowIcon == "" {
		cfg.Battery.LowIcon = DefaultBatteryLowIcon
	}
	if cfg.Battery.ChargingIcon == "" {
		cfg.Battery.ChargingIcon = DefaultBatteryChargingIcon
	}
	if cfg.Battery.DynamicChargingIcon == nil {
		cfg.Battery.DynamicChargingIcon = &t
	}
	if cfg.Battery.DischargingIcon == "" {
		cfg.Battery.DischargingIcon = DefaultBatteryDischargingIcon
	}
	if cfg.Battery.DynamicDischargingIcon == nil {
		cfg.Battery.DynamicDischargingIcon = &t
	}
	if cfg.Battery.PollSeconds == 0 {
		cfg.Battery.PollSeconds = 15
	}
	if cfg.Battery.WarnAt == 0 {
		cfg.Battery.WarnAt = 15
	}

	// Keyboard defaults.
	if cfg.Keyboard.IconPath == "" {
		cfg.Keyboard.IconPath = DefaultIconPath
	}
	if cfg.Keyboard.Icon == "" {
		cfg.Keyboard.Icon = DefaultKeyboardIcon
	}

	// Brightness defaults.
	if cfg.Brightness.IconPath == "" {
		cfg.Brightness.IconPath = DefaultIconPath
	}
	if cfg.Brightness.Icon == "" {
		cfg.Brightness.Icon = DefaultBrightnessIcon
	}
}
