package recording_test

import (
	"os"
	"path/filepath"
	"testing"

	"screenreview/internal/recording"
	"screenreview/internal/testsupport"
)

func TestScanSessionOrdersAndFilters(t *testing.T) {
	sessionDir := filepath.Join(t.TempDir(), "review-2026-02-11")
	testsupport.WriteScreen(t, sessionDir, "home", "mobile")
	testsupport.WriteScreen(t, sessionDir, "checkout", "desktop")
	testsupport.WriteScreen(t, sessionDir, "checkout", "mobile")
	// A screen directory without a recording is skipped.
	testsupport.WriteFile(t, filepath.Join(sessionDir, "routes", "about", "mobile", recording.ScreenshotFileName), []byte("png"))
	// Stray files under routes/ are ignored.
	testsupport.WriteFile(t, filepath.Join(sessionDir, "routes", "notes.txt"), []byte("x"))

	screens, err := recording.ScanSession(sessionDir)
	if err != nil {
		t.Fatalf("ScanSession: %v", err)
	}
	var labels []string
	for _, screen := range screens {
		labels = append(labels, screen.Label())
	}
	want := []string{"checkout/desktop", "checkout/mobile", "home/mobile"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
	if screens[0].Project != "review-2026-02-11" {
		t.Errorf("project = %q", screens[0].Project)
	}
}

func TestScanSessionMissingRoutesDir(t *testing.T) {
	if _, err := recording.ScanSession(t.TempDir()); err == nil {
		t.Fatal("expected error for session without routes directory")
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	screen := recording.Screen{Dir: dir, Route: "home", Viewport: "mobile"}

	meta, err := screen.LoadMetadata()
	if err != nil {
		t.Fatalf("missing metadata should not error: %v", err)
	}
	if meta.Browser != "" || meta.ViewportSize.W != 0 {
		t.Fatalf("missing metadata not zero: %+v", meta)
	}

	testsupport.WriteFile(t, screen.MetadataPath(), []byte(`{
  "route": "home",
  "viewport": "mobile",
  "viewport_size": {"w": 390, "h": 844},
  "browser": "chromium",
  "git": {"branch": "main", "commit": "abc123"},
  "timestamp_utc": "2026-02-11T09:30:00Z"
}`))
	meta, err = screen.LoadMetadata()
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if meta.ViewportSize.W != 390 || meta.ViewportSize.H != 844 {
		t.Errorf("viewport size = %+v", meta.ViewportSize)
	}
	if meta.Git.Branch != "main" {
		t.Errorf("git = %+v", meta.Git)
	}

	testsupport.WriteFile(t, screen.MetadataPath(), []byte("{not json"))
	if _, err := screen.LoadMetadata(); err == nil {
		t.Fatal("expected error for malformed metadata")
	}
}

func TestLoadMarkings(t *testing.T) {
	dir := t.TempDir()
	screen := recording.Screen{Dir: dir}

	markings, err := screen.LoadMarkings()
	if err != nil {
		t.Fatalf("missing markings should not error: %v", err)
	}
	if markings != nil {
		t.Fatalf("missing markings = %+v, want nil", markings)
	}

	testsupport.WriteFile(t, screen.MarkingsPath(), []byte(`[{"x":10,"y":20,"w":100,"h":40,"label":"header"}]`))
	markings, err = screen.LoadMarkings()
	if err != nil {
		t.Fatalf("LoadMarkings: %v", err)
	}
	if len(markings) != 1 || markings[0].Label != "header" || markings[0].W != 100 {
		t.Fatalf("markings = %+v", markings)
	}
}

func TestExtractionDirDefault(t *testing.T) {
	screen := recording.Screen{Dir: "/data/s/routes/home/mobile"}
	if got := screen.ExtractionDir(""); got != filepath.Join(screen.Dir, ".extraction") {
		t.Fatalf("ExtractionDir = %q", got)
	}
	if got := screen.ExtractionDir("out"); got != filepath.Join(screen.Dir, "out") {
		t.Fatalf("ExtractionDir = %q", got)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".extraction")
	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	in := []payload{{Name: "a", Value: 1.5}, {Name: "b", Value: 2}}

	path, err := recording.WriteArtifact(dir, "sample.json", in)
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}

	var out []payload
	if err := recording.ReadArtifact(dir, "sample.json", &out); err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("round trip = %+v", out)
	}

	err = recording.ReadArtifact(dir, "absent.json", &out)
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want IsNotExist", err)
	}
}
