package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"screenreview/internal/config"
	"screenreview/internal/correlate"
	"screenreview/internal/costs"
	"screenreview/internal/frames"
	"screenreview/internal/gestures"
	"screenreview/internal/pipeline"
	"screenreview/internal/recording"
	"screenreview/internal/regionocr"
	"screenreview/internal/services/ffmpeg"
	"screenreview/internal/testsupport"
	"screenreview/internal/transcribe"
)

type fakeMedia struct {
	frameCount int
}

func (f *fakeMedia) ExtractFrames(ctx context.Context, videoPath, outDir string, fps float64) ([]frames.Frame, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	out := make([]frames.Frame, f.frameCount)
	for i := range out {
		path := filepath.Join(outDir, fmt.Sprintf("frame_%05d.png", i))
		if err := os.WriteFile(path, []byte{byte(i)}, 0o644); err != nil {
			return nil, err
		}
		out[i] = frames.Frame{Index: i, Path: path, Timestamp: float64(i) / fps}
	}
	return out, nil
}

func (f *fakeMedia) Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error) {
	return ffmpeg.MediaInfo{DurationSeconds: float64(f.frameCount)}, nil
}

func (f *fakeMedia) AudioSamples(ctx context.Context, audioPath string) ([]int16, int, error) {
	return make([]int16, 8000), 8000, nil
}

// fakeDetector reports a pointing gesture on one frame index.
type fakeDetector struct {
	pointingFrame int
}

func (d *fakeDetector) Detect(ctx context.Context, framePaths []string) ([]gestures.Detection, error) {
	out := make([]gestures.Detection, len(framePaths))
	if d.pointingFrame >= 0 && d.pointingFrame < len(out) {
		out[d.pointingFrame] = gestures.Detection{
			Pointing:   true,
			X:          320,
			Y:          240,
			Confidence: 0.9,
			Width:      640,
			Height:     480,
		}
	}
	return out, nil
}

// failingDetector simulates a gesture helper that is installed but broken.
type failingDetector struct{}

func (failingDetector) Detect(ctx context.Context, framePaths []string) ([]gestures.Detection, error) {
	return nil, errors.New("handtrack helper crashed")
}

// attrRecorder collects every logged attribute as "key=value" strings.
type attrRecorder struct {
	mu   *sync.Mutex
	seen *[]string
	with []slog.Attr
}

func (h attrRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h attrRecorder) Handle(_ context.Context, rec slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.with {
		*h.seen = append(*h.seen, a.Key+"="+a.Value.String())
	}
	rec.Attrs(func(a slog.Attr) bool {
		*h.seen = append(*h.seen, a.Key+"="+a.Value.String())
		return true
	})
	return nil
}

func (h attrRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.with = append(append([]slog.Attr{}, h.with...), attrs...)
	return h
}

func (h attrRecorder) WithGroup(string) slog.Handler { return h }

type fakeOCR struct{}

func (fakeOCR) Recognize(ctx context.Context, imagePath string) ([]regionocr.Result, error) {
	return []regionocr.Result{
		{Text: "Anmelden", BBox: regionocr.Box{X1: 10, Y1: 20, X2: 60, Y2: 40}, Confidence: 0.92},
	}, nil
}

type fakeSpeech struct {
	result transcribe.Result
	err    error
}

func (f *fakeSpeech) Name() string { return "fake" }

func (f *fakeSpeech) Transcribe(ctx context.Context, audioPath, language string) (transcribe.Result, error) {
	if f.err != nil {
		return transcribe.Result{}, f.err
	}
	return f.result, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "Findings: login button flagged for removal.", nil
}

func (fakeSummarizer) Model() string { return "test-model" }

func writeScreenshotPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create screenshot: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode screenshot: %v", err)
	}
}

func testScreen(t *testing.T, cfg *config.Config) recording.Screen {
	t.Helper()
	sessionDir := filepath.Join(testsupport.BaseDir(cfg), "session")
	dir := testsupport.WriteScreen(t, sessionDir, "login", "mobile")
	writeScreenshotPNG(t, filepath.Join(dir, recording.ScreenshotFileName), 390, 840)
	testsupport.WriteFile(t, filepath.Join(dir, recording.MetadataFileName), []byte(`{
  "route": "login",
  "viewport": "mobile",
  "viewport_size": {"w": 390, "h": 840},
  "browser": "chromium",
  "git": {"branch": "main", "commit": "abcdef1234567890"},
  "timestamp_utc": "2026-02-11T09:30:00Z"
}`))
	return recording.Screen{Dir: dir, Project: "session", Route: "login", Viewport: "mobile"}
}

func germanReviewResult() transcribe.Result {
	return transcribe.Result{
		Text:     "Bitte den Anmelde-Button entfernen",
		Provider: "fake",
		Segments: []transcribe.Segment{
			{Start: 4.0, End: 5.5, Text: "Bitte den Anmelde-Button entfernen"},
		},
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	screen := testScreen(t, cfg)

	providers := pipeline.Providers{
		Media:    &fakeMedia{frameCount: 10},
		Detector: &fakeDetector{pointingFrame: 5},
		OCR:      fakeOCR{},
		Speech:   transcribe.NewChain(nil, &fakeSpeech{result: germanReviewResult()}),
		Analyzer: fakeSummarizer{},
	}
	cfg.Analysis.Enabled = true
	cfg.Analysis.APIKey = "test"

	var mu sync.Mutex
	var events []pipeline.Event
	runner := pipeline.NewRunner(cfg, nil, providers, costs.NewLedger(0, 0), func(ev pipeline.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	outcome, err := runner.Run(context.Background(), screen)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(outcome.Annotations) != 1 {
		t.Fatalf("annotations = %+v, want exactly one", outcome.Annotations)
	}
	ann := outcome.Annotations[0]
	if ann.Index != 1 {
		t.Errorf("index = %d, want 1", ann.Index)
	}
	if ann.Timestamp == nil || *ann.Timestamp != 5.0 {
		t.Errorf("timestamp = %v, want 5.0", ann.Timestamp)
	}
	if ann.Position == nil || *ann.Position != (gestures.Point{X: 195, Y: 420}) {
		t.Errorf("position = %v, want (195,420)", ann.Position)
	}
	if ann.OCRText == nil || *ann.OCRText != "Anmelden" {
		t.Errorf("ocr text = %v, want Anmelden", ann.OCRText)
	}
	if ann.SpokenText == nil || *ann.SpokenText != "Bitte den Anmelde-Button entfernen" {
		t.Errorf("spoken text = %v", ann.SpokenText)
	}
	if ann.TriggerType == nil || *ann.TriggerType != "remove" {
		t.Errorf("trigger type = %v, want remove", ann.TriggerType)
	}
	if ann.RegionImage == nil {
		t.Error("region image missing")
	}

	outDir := screen.ExtractionDir(cfg.Paths.ExtractionDir)
	for _, name := range []string{
		recording.GestureEventsFile,
		recording.TranscriptSegmentsFile,
		recording.TriggerEventsFile,
		recording.ScreenshotOCRFile,
		recording.RegionOCRFile,
		recording.AnnotationsFile,
		recording.ReportFile,
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("artifact %s missing: %v", name, err)
		}
	}

	var persisted []correlate.Annotation
	if err := recording.ReadArtifact(outDir, recording.AnnotationsFile, &persisted); err != nil {
		t.Fatalf("read annotations artifact: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Index != 1 {
		t.Fatalf("persisted annotations = %+v", persisted)
	}

	doc, err := os.ReadFile(outcome.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(doc), "[remove]") {
		t.Error("report missing trigger heading")
	}
	if !strings.Contains(string(doc), outcome.Summary) {
		t.Error("report missing analysis summary")
	}

	if len(outcome.Degraded) != 0 {
		t.Errorf("degraded = %v", outcome.Degraded)
	}
	mu.Lock()
	defer mu.Unlock()
	var sawExport bool
	for _, ev := range events {
		if ev.Stage == pipeline.StageExport && ev.Status == pipeline.StatusSuccess {
			sawExport = true
		}
	}
	if !sawExport {
		t.Error("no export success event emitted")
	}
}

func TestRunnerDegradesWhenTranscriptionFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	screen := testScreen(t, cfg)

	providers := pipeline.Providers{
		Media:    &fakeMedia{frameCount: 6},
		Detector: &fakeDetector{pointingFrame: 2},
		OCR:      fakeOCR{},
		Speech:   transcribe.NewChain(nil, &fakeSpeech{err: errors.New("model load failed")}),
	}
	runner := pipeline.NewRunner(cfg, nil, providers, nil, nil)

	outcome, err := runner.Run(context.Background(), screen)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcome.Annotations) != 1 {
		t.Fatalf("annotations = %+v, want gesture-only annotation", outcome.Annotations)
	}
	if outcome.Annotations[0].SpokenText != nil {
		t.Error("annotation has spoken text without a transcript")
	}

	var sawDegraded bool
	for _, note := range outcome.Degraded {
		if strings.HasPrefix(note, string(pipeline.StageTranscribe)) {
			sawDegraded = true
		}
	}
	if !sawDegraded {
		t.Fatalf("degraded = %v, want transcribe entry", outcome.Degraded)
	}

	doc, err := os.ReadFile(outcome.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(doc), transcribe.GapMarker) {
		t.Error("report missing transcript gap marker")
	}
}

func TestRunnerDegradesWhenGestureDetectorUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	screen := testScreen(t, cfg)

	var mu sync.Mutex
	var seen []string
	logger := slog.New(attrRecorder{mu: &mu, seen: &seen})

	providers := pipeline.Providers{
		Media:    &fakeMedia{frameCount: 6},
		Detector: failingDetector{},
		OCR:      fakeOCR{},
		Speech:   transcribe.NewChain(nil, &fakeSpeech{result: germanReviewResult()}),
	}
	runner := pipeline.NewRunner(cfg, logger, providers, nil, nil)

	outcome, err := runner.Run(context.Background(), screen)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(outcome.Annotations) != 1 {
		t.Fatalf("annotations = %+v, want one from the transcript segment", outcome.Annotations)
	}
	ann := outcome.Annotations[0]
	if ann.Position != nil {
		t.Errorf("position = %v, want none without gesture events", ann.Position)
	}
	if ann.Timestamp == nil || *ann.Timestamp != 4.0 {
		t.Errorf("timestamp = %v, want segment start 4.0", ann.Timestamp)
	}
	if ann.SpokenText == nil || *ann.SpokenText != "Bitte den Anmelde-Button entfernen" {
		t.Errorf("spoken text = %v", ann.SpokenText)
	}
	if ann.TriggerType == nil || *ann.TriggerType != "remove" {
		t.Errorf("trigger type = %v, want remove", ann.TriggerType)
	}

	outDir := screen.ExtractionDir(cfg.Paths.ExtractionDir)
	var events []gestures.Event
	if err := recording.ReadArtifact(outDir, recording.GestureEventsFile, &events); err != nil {
		t.Fatalf("read gesture events artifact: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("gesture events = %+v, want none", events)
	}

	var sawDegraded bool
	for _, note := range outcome.Degraded {
		if strings.HasPrefix(note, string(pipeline.StageGestures)) {
			sawDegraded = true
		}
	}
	if !sawDegraded {
		t.Fatalf("degraded = %v, want gestures entry", outcome.Degraded)
	}

	mu.Lock()
	defer mu.Unlock()
	var sawBranch bool
	for _, attr := range seen {
		if attr == "branch=video" {
			sawBranch = true
		}
	}
	if !sawBranch {
		t.Error("detector failure not logged on the video branch")
	}
}

func TestRunnerSkipsDisabledProviders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Gestures.Enabled = false
	cfg.OCR.Enabled = false
	screen := testScreen(t, cfg)

	runner := pipeline.NewRunner(cfg, nil, pipeline.Providers{Media: &fakeMedia{frameCount: 4}}, nil, nil)
	outcome, err := runner.Run(context.Background(), screen)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcome.Annotations) != 0 {
		t.Fatalf("annotations = %+v, want none", outcome.Annotations)
	}

	skipped := map[pipeline.Stage]bool{}
	for _, res := range outcome.Stages {
		if res.Status == pipeline.StatusSkipped {
			skipped[res.Stage] = true
		}
	}
	for _, stage := range []pipeline.Stage{pipeline.StageGestures, pipeline.StageOCR, pipeline.StageTranscribe, pipeline.StageAnalyze} {
		if !skipped[stage] {
			t.Errorf("stage %s not skipped: %+v", stage, outcome.Stages)
		}
	}
	if _, err := os.Stat(outcome.ReportPath); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}

func TestRunnerAbortsOnCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	screen := testScreen(t, cfg)

	runner := pipeline.NewRunner(cfg, nil, pipeline.Providers{Media: &fakeMedia{frameCount: 4}}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := runner.Run(ctx, screen)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(outcome.Stages) == 0 {
		t.Fatal("no stage results recorded for aborted run")
	}
	for _, res := range outcome.Stages {
		if res.Status != pipeline.StatusAborted {
			t.Errorf("stage %s status = %s, want aborted", res.Stage, res.Status)
		}
	}
	if outcome.ReportPath != "" {
		t.Error("aborted run produced a report path")
	}
}
