package config

// DefaultConfigTOML is a complete, commented sample sun.toml.
const DefaultConfigTOML = `# sun configuration file
# Every module can be toggled at runtime: edits to this file are picked up
# live, no restart needed.

# error_icon = "/usr/share/icons/Adwaita/symbolic/status/dialog-error-symbolic.svg"

[log]
# level = "info"                # debug, info, warn, error
# format = ""                   # json, text (default: text on a terminal)

[metrics]
# enabled = false               # expose Prometheus metrics over HTTP
# listen = "127.0.0.1:9189"     # metrics listen address

[sound]
# off = false
# icon_path = "/usr/share/icons/Adwaita/symbolic/"
# sink_icon = "status/audio-volume-high-symbolic.svg"
# sink_muted_icon = "status/audio-volume-muted-symbolic.svg"
# sink_bluetooth_icon = "status/audio-volume-high-symbolic.svg"
# sink_bluetooth_battery_poll_seconds = 30
# sink_bluetooth_low_battery_warn_at = 15
# sink_bluetooth_low_battery_timeout_ms = -1   # -1 = server default, 0 = never expire
# sink_notification_timeout_ms = 2500
# source_icon = "status/microphone-sensetivity-high-symbolic.svg"
# source_muted_icon = "status/microphone-sensetivity-muted-symbolic.svg"
# source_notification_timeout_ms = 2500

[battery]
# off = false
# icon_path = "/usr/share/icons/Adwaita/symbolic/"
# full_icon = "status/battery-level-100-charged-symbolic.svg"
# low_icon = "status/battery-caution-symbolic.svg"
# charging_icon = "status/battery-level-{level}-charging-symbolic.svg"
# dynamic_charging_icon = true     # substitute {level} with the charge decile
# discharging_icon = "status/battery-level-{level}-symbolic.svg"
# dynamic_discharging_icon = true
# poll_seconds = 15                # capacity re-check interval
# warn_at = 15                     # low-battery warning threshold (percent)

[keyboard]
# off = false
# icon_path = "/usr/share/icons/Adwaita/symbolic/"
# icon = "devices/input-keyboard-symbolic.svg"

[brightness]
# off = false
# icon_path = "/usr/share/icons/Adwaita/symbolic/"
# icon = "status/display-brightness-symbolic.svg"
`
