// Package config loads, normalizes, and validates orchestrator configuration.
//
// It supplies repository defaults, reads an optional TOML file, and overlays
// LIVESTREAM_* environment variables (with .env support), so the same keys
// work from a config file, a systemd unit, or a shell. Paths are expanded
// (tilde and $VARS) and the result is validated before any component sees it.
//
// The Config value is immutable after Load; components receive it through
// their constructors rather than reading the environment themselves.
package config
