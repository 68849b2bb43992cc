// Package config loads, normalizes, and validates PixelTerm configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from the --config flag,
// ~/.config/pixelterm/config.toml, or ./pixelterm.toml in that order. Every
// tunable the cache, preload worker, renderer, and viewer consume is held on
// the Config type so callers receive sanitized paths and clear validation
// errors in one pass.
package config
