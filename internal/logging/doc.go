// Package logging provides slog-based structured logging for screenreview.
//
// It exposes a console (pretty) handler for interactive use and a JSON
// handler for automation, typed attribute helpers, and context-derived
// fields so every log line produced while a screen is processing carries
// the screen identifier and stage name.
package logging
