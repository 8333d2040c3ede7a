// Package cloudspeech transcribes audio through an OpenAI-compatible
// transcription endpoint.
package cloudspeech
