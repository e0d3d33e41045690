// Package config loads, validates, and defaults Lookout configuration.
//
// Configuration comes from a TOML file (~/.config/lookout/config.toml or a
// lookout.toml in the working directory) layered over built-in defaults. All
// path fields are tilde-expanded and made absolute during normalization, so
// downstream packages never deal with relative or home-anchored paths.
//
// The monitored log root is read-only external input and is deliberately not
// created by EnsureDirectories; only daemon-owned state directories are.
package config
