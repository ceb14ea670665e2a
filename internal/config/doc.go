// Package config loads, normalizes, and validates mangadrop configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the MANGADROP_DEVICE environment
// override. The Config type centralizes every knob the CLI needs: local work,
// queue and cart locations, the device label and catalog layout, fetch
// concurrency, and the kindlegen converter.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
