// Package config loads and validates loom's TOML configuration.
//
// Load resolves the config path (explicit flag, ~/.config/loom/config.toml,
// or a project-local loom.toml), decodes it over the built-in defaults,
// expands ~ in path fields, and validates the result. The embedded sample
// config documents every knob and is written out by `loom config init`.
package config
