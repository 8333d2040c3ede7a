// Package gestures turns per-frame pointing detections from the webcam feed
// into timestamped events positioned on the reference screenshot.
package gestures
