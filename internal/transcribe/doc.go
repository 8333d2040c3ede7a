// Package transcribe defines the transcript model and the provider fallback
// chain that turns the microphone track into timestamped text segments.
package transcribe
