// Package config loads the overlay host's own configuration.
//
// Values are layered, later layers overriding earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment (OVERLAY_*) │  ← Highest priority
//	├─────────────────────────────┤
//	│  2. TOML config file        │  ← ~/.config/overlay/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// A config file looks like:
//
//	[plugins]
//	dir = "/usr/share/overlay/plugins"
//	extension = ".plugin"
//	watch = true
//
//	[storage]
//	settings_path = "~/.config/overlay/settings.toml"
//	snapshot_backend = "sqlite"
//
//	[logging]
//	level = "debug"
//
//	[metrics]
//	addr = "127.0.0.1:9464"
//
// Environment variables are named after the section and key, for example
// OVERLAY_PLUGINS_DIR, OVERLAY_STORAGE_SNAPSHOT_BACKEND or OVERLAY_LOG_LEVEL.
//
// This is host configuration only. Plugin bookkeeping (which plugins are
// active, clone counts) lives in the settings tree, see package settings.
package config
