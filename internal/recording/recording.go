package recording

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known file names inside a screen directory.
const (
	VideoFileName      = "recording.webm"
	AudioFileName      = "audio.wav"
	ScreenshotFileName = "screenshot.png"
	MetadataFileName   = "metadata.json"
	MarkingsFileName   = "markings.json"
)

// Artifact file names written into the extraction directory.
const (
	GestureEventsFile      = "gesture_events.json"
	TranscriptSegmentsFile = "transcript_segments.json"
	TriggerEventsFile      = "trigger_events.json"
	ScreenshotOCRFile      = "screenshot_ocr.json"
	RegionOCRFile          = "region_ocr.json"
	AnnotationsFile        = "annotations.json"
	ReportFile             = "transcript.md"
)

// ViewportSize is the reference screenshot resolution in CSS pixels.
type ViewportSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Git captures the repository state the screen was recorded against.
type Git struct {
	Branch string `json:"branch"`
	Commit string `json:"commit"`
}

// Metadata is the per-screen capture context written by the recording front end.
type Metadata struct {
	Route        string       `json:"route"`
	Viewport     string       `json:"viewport"`
	ViewportSize ViewportSize `json:"viewport_size"`
	Browser      string       `json:"browser"`
	Git          Git          `json:"git"`
	TimestampUTC string       `json:"timestamp_utc"`
}

// Screen identifies one recorded screen: a route slug rendered in one viewport.
type Screen struct {
	Dir      string
	Project  string
	Route    string
	Viewport string
}

// Label returns the human-readable screen identifier used in logs and events.
func (s Screen) Label() string {
	return s.Route + "/" + s.Viewport
}

func (s Screen) VideoPath() string      { return filepath.Join(s.Dir, VideoFileName) }
func (s Screen) AudioPath() string      { return filepath.Join(s.Dir, AudioFileName) }
func (s Screen) ScreenshotPath() string { return filepath.Join(s.Dir, ScreenshotFileName) }
func (s Screen) MetadataPath() string   { return filepath.Join(s.Dir, MetadataFileName) }
func (s Screen) MarkingsPath() string   { return filepath.Join(s.Dir, MarkingsFileName) }

// ExtractionDir returns the artifact directory for this screen.
func (s Screen) ExtractionDir(name string) string {
	if strings.TrimSpace(name) == "" {
		name = ".extraction"
	}
	return filepath.Join(s.Dir, name)
}

// HasRecording reports whether the screen has captured media to process.
func (s Screen) HasRecording() bool {
	info, err := os.Stat(s.VideoPath())
	return err == nil && !info.IsDir() && info.Size() > 0
}

// LoadMetadata reads and parses the screen's metadata.json. A missing file
// yields zero metadata rather than an error; the capture front end does not
// always write one.
func (s Screen) LoadMetadata() (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(s.MetadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata: %w", err)
	}
	return meta, nil
}

// ScanSession walks a session directory laid out as
// routes/<route-slug>/<viewport>/ and returns every screen that has a
// recording, ordered by route then viewport for deterministic queueing.
func ScanSession(sessionDir string) ([]Screen, error) {
	routesDir := filepath.Join(sessionDir, "routes")
	entries, err := os.ReadDir(routesDir)
	if err != nil {
		return nil, fmt.Errorf("read routes directory: %w", err)
	}

	project := filepath.Base(sessionDir)
	var screens []Screen
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		route := entry.Name()
		for _, viewport := range []string{"mobile", "desktop"} {
			dir := filepath.Join(routesDir, route, viewport)
			screen := Screen{Dir: dir, Project: project, Route: route, Viewport: viewport}
			if screen.HasRecording() {
				screens = append(screens, screen)
			}
		}
	}
	sort.Slice(screens, func(i, j int) bool {
		if screens[i].Route != screens[j].Route {
			return screens[i].Route < screens[j].Route
		}
		return screens[i].Viewport < screens[j].Viewport
	})
	return screens, nil
}
