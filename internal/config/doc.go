// Package config provides user configuration management for the daelim tools.
//
// This package manages a YAML-based configuration file that stores the
// apartment servers a user has logged in to, together with the session
// pins and device catalog saved from the last login, so that the next run
// can resume without the full handshake.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/daelim/config.yaml or $HOME/.config/daelim/config.yaml
//   - macOS: $HOME/.config/daelim/config.yaml
//   - Windows: %LOCALAPPDATA%\daelim\config.yaml
//
// DAELIM_CONFIG_DIR overrides the directory on every platform.
//
// # Security
//
// IMPORTANT: This package NEVER stores passwords. They come from a flag,
// the DAELIM_PASSWORD environment variable or an interactive prompt.
//
// # Importing
//
// ImportFile merges homes from a .yaml or .toml file, which is how a known
// device catalog for an apartment is seeded:
//
//	[homes.office]
//	host = "10.10.1.20"
//	user_id = "me"
//
//	[[homes.office.controlinfo.light]]
//	uid = "012611"
//	uname = "거실"
//	dimming = "y"
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and are atomic.
package config
