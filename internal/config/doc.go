// Package config loads, normalizes, and validates batchmux configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BATCHMUX_FFMPEG. The Config type centralizes every knob the CLI and the
// batch orchestrator need so engine, naming, logging, and history settings are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
