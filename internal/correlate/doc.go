// Package correlate joins the video branch (gesture events with region OCR)
// and the audio branch (trigger-annotated transcript segments) into the
// final annotation list of a screen.
package correlate
