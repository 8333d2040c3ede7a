// Package pipeline runs the per-screen analysis: frame extraction, frame
// selection, gesture detection, and OCR on the video branch; transcription
// and trigger classification on the audio branch; then correlation, the
// optional AI analysis, and the document export.
//
// The two branches run concurrently and join at correlation. Provider
// failures degrade the affected stages instead of aborting the screen;
// only correlation, export, and cancellation abort.
package pipeline
