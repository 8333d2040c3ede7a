package testsupport

import (
	"path/filepath"
	"testing"
)

// WriteScreen lays out a minimal screen directory under a session root and
// returns the screen directory path.
func WriteScreen(t testing.TB, sessionDir, route, viewport string) string {
	t.Helper()
	dir := filepath.Join(sessionDir, "routes", route, viewport)
	WriteFile(t, filepath.Join(dir, "recording.webm"), []byte("webm"))
	WriteFile(t, filepath.Join(dir, "audio.wav"), []byte("RIFF"))
	WriteFile(t, filepath.Join(dir, "screenshot.png"), []byte("png"))
	return dir
}
