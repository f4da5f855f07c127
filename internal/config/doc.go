// Package config handles configuration file loading and validation.
// Configuration is TOML at $XDG_CONFIG_HOME/notchd/config.toml; a missing
// file yields the defaults. A watcher notices on-disk edits and logs a
// restart hint, since live reload is not supported.
package config
