// Package whisperx transcribes audio locally by running WhisperX through
// uvx, so no Python environment has to be prepared up front.
package whisperx
