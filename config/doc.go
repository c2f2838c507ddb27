// Package config loads and validates the daemon's TOML configuration,
// layering file values over built-in defaults.
package config
