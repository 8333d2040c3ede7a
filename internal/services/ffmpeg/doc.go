// Package ffmpeg wraps the ffmpeg and ffprobe binaries for frame extraction,
// media probing, and audio decoding.
package ffmpeg
