// Package config loads, validates, and normalizes screenreview configuration.
//
// Configuration is TOML with a sample embedded for `screenreview config init`.
// API keys may additionally come from a .env file next to the config so that
// secrets stay out of the committed configuration.
package config
