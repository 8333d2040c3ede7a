// Package notifications delivers processing milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-category toggles let operators silence screen, queue, or error
// events individually without touching the callers.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
