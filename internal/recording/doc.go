// Package recording models one captured screen review session: the raw
// webcam video and microphone audio recorded against a reference screenshot,
// plus the .extraction artifact directory the pipeline writes next to it.
package recording
