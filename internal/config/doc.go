// Package config loads, normalizes, and validates the TOML configuration
// that drives the card-counter engine: directory locations, processing
// limits, the era cutoff, and logging options.
package config
