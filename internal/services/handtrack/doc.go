// Package handtrack runs the external hand tracking helper that detects
// pointing gestures in webcam frames.
package handtrack
