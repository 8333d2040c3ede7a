package pipeline

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"screenreview/internal/config"
	"screenreview/internal/correlate"
	"screenreview/internal/costs"
	"screenreview/internal/frames"
	"screenreview/internal/gestures"
	"screenreview/internal/logging"
	"screenreview/internal/recording"
	"screenreview/internal/regionocr"
	"screenreview/internal/report"
	"screenreview/internal/services/ffmpeg"
	"screenreview/internal/transcribe"
	"screenreview/internal/triggers"
)

// MediaService covers the ffmpeg operations the pipeline needs.
type MediaService interface {
	ExtractFrames(ctx context.Context, videoPath, outDir string, fps float64) ([]frames.Frame, error)
	Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error)
	AudioSamples(ctx context.Context, audioPath string) ([]int16, int, error)
}

// Summarizer produces the optional AI analysis of a screen.
type Summarizer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// Providers bundles the services a runner draws on. Nil entries disable the
// corresponding stage.
type Providers struct {
	Media    MediaService
	Detector gestures.Detector
	OCR      regionocr.Engine
	Speech   *transcribe.Chain
	Analyzer Summarizer
	// SpeechCostModel is the metered model billed when the cloud
	// transcription provider answers.
	SpeechCostModel string
}

// Outcome is the result of processing one screen.
type Outcome struct {
	Screen      string
	Annotations []correlate.Annotation
	Stages      []StageResult
	Degraded    []string
	CostEuro    float64
	ReportPath  string
	Summary     string
}

// Runner executes the pipeline for single screens. It is safe to share one
// runner across the worker pool.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	providers Providers
	ledger    *costs.Ledger
	progress  ProgressFunc
}

// NewRunner wires a runner. Logger and progress may be nil.
func NewRunner(cfg *config.Config, logger *slog.Logger, providers Providers, ledger *costs.Ledger, progress ProgressFunc) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger, providers: providers, ledger: ledger, progress: progress}
}

// Run processes one screen end to end. It returns an error only when the
// screen aborts: cancellation, or a failed export. Provider failures degrade
// the affected stages and are reported through Outcome.Stages.
func (r *Runner) Run(ctx context.Context, screen recording.Screen) (Outcome, error) {
	label := screen.Label()
	logger := r.logger.With(logging.String(logging.FieldScreen, label))
	outDir := screen.ExtractionDir(r.cfg.Paths.ExtractionDir)

	meta, err := screen.LoadMetadata()
	if err != nil {
		logger.Warn("metadata unreadable", logging.Error(err))
	}

	t := &tracker{}
	var video videoOutput
	var audio audioOutput
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		video = r.runVideoBranch(ctx, t, screen, meta, outDir,
			logger.With(logging.String(logging.FieldBranch, "video")))
	}()
	go func() {
		defer wg.Done()
		audio = r.runAudioBranch(ctx, t, screen,
			logger.With(logging.String(logging.FieldBranch, "audio")))
	}()
	wg.Wait()

	outcome := Outcome{Screen: label}
	if ctx.Err() != nil {
		r.report(t, label, StageCorrelate, StatusAborted, "cancelled")
		outcome.Stages, outcome.Degraded = t.snapshot()
		return outcome, ctx.Err()
	}

	r.announce(label, StageCorrelate, "correlating gestures with transcript")
	outcome.Annotations = correlate.Annotations(video.events, video.regions, audio.annotated, r.cfg.Correlation.ToleranceSeconds)
	r.report(t, label, StageCorrelate, StatusSuccess, fmt.Sprintf("%d annotations", len(outcome.Annotations)))

	outcome.Summary = r.runAnalysis(ctx, t, label, meta, outcome.Annotations, audio.result)

	if ctx.Err() != nil {
		r.report(t, label, StageExport, StatusAborted, "cancelled")
		outcome.Stages, outcome.Degraded = t.snapshot()
		return outcome, ctx.Err()
	}
	reportPath, err := r.export(t, screen, outDir, meta, video, audio, outcome)
	outcome.Stages, outcome.Degraded = t.snapshot()
	outcome.ReportPath = reportPath
	if r.ledger != nil {
		outcome.CostEuro = r.ledger.ScreenTotal(label)
	}
	if err != nil {
		return outcome, err
	}
	logger.Info("screen processed",
		logging.Int("annotations", len(outcome.Annotations)),
		logging.Int("degraded_stages", len(outcome.Degraded)))
	return outcome, nil
}

type videoOutput struct {
	frames     []frames.Frame
	selected   []frames.Selected
	detections []gestures.Detection
	detectErr  error
	events     []gestures.Event
	fullOCR    []regionocr.Result
	regions    []regionocr.Region
	marked     []regionocr.Region
}

type audioOutput struct {
	result    transcribe.Result
	annotated []triggers.AnnotatedSegment
	events    []triggers.Event
}

func (r *Runner) runVideoBranch(ctx context.Context, t *tracker, screen recording.Screen, meta recording.Metadata, outDir string, logger *slog.Logger) videoOutput {
	var out videoOutput
	label := screen.Label()

	if r.aborted(ctx, t, label, StageExtract, StageSelect, StageGestures, StageOCR) {
		return out
	}
	r.announce(label, StageExtract, "extracting frames")
	sctx, cancel := r.stageContext(ctx)
	extracted, err := r.providers.Media.ExtractFrames(sctx, screen.VideoPath(), filepath.Join(outDir, "frames"), r.cfg.Frames.ExtractionFPS)
	cancel()
	if err != nil {
		logger.Warn("frame extraction failed", logging.Error(err))
		r.report(t, label, StageExtract, StatusDegraded, err.Error())
	} else {
		out.frames = extracted
		r.report(t, label, StageExtract, StatusSuccess, fmt.Sprintf("%d frames", len(extracted)))
	}

	if r.aborted(ctx, t, label, StageSelect, StageGestures, StageOCR) {
		return out
	}
	r.runSelectStage(ctx, t, &out, screen, logger)

	if r.aborted(ctx, t, label, StageGestures, StageOCR) {
		return out
	}
	r.runGestureStage(t, &out, screen, meta, logger)

	if r.aborted(ctx, t, label, StageOCR) {
		return out
	}
	r.runOCRStage(ctx, t, &out, screen, outDir, logger)
	return out
}

func (r *Runner) runSelectStage(ctx context.Context, t *tracker, out *videoOutput, screen recording.Screen, logger *slog.Logger) {
	label := screen.Label()
	if len(out.frames) == 0 {
		r.report(t, label, StageSelect, StatusSkipped, "no frames extracted")
		return
	}
	r.announce(label, StageSelect, "selecting frames")

	sig := frames.Signals{Differ: frames.ByteDiffer{}}
	sctx, cancel := r.stageContext(ctx)
	defer cancel()
	if samples, rate, err := r.providers.Media.AudioSamples(sctx, screen.AudioPath()); err != nil {
		logger.Warn("audio level analysis failed", logging.Error(err))
	} else {
		sig.AudioLevels = frames.AudioLevelsFromPCM(samples, rate, r.cfg.Frames.ExtractionFPS, len(out.frames))
	}
	if r.cfg.Gestures.Enabled && r.providers.Detector != nil {
		paths := make([]string, len(out.frames))
		for i, f := range out.frames {
			paths[i] = f.Path
		}
		detections, err := r.providers.Detector.Detect(sctx, paths)
		if err != nil {
			logger.Warn("gesture detection failed", logging.Error(err))
			out.detectErr = err
		} else {
			out.detections = detections
			flags := make([]bool, len(detections))
			for i, d := range detections {
				flags[i] = d.Pointing && d.Confidence >= r.cfg.Gestures.Sensitivity
			}
			sig.GestureFlags = flags
		}
	}

	selector := frames.Selector{
		MaxFrames:          r.cfg.Frames.MaxPerScreen,
		AudioThreshold:     r.cfg.Frames.AudioThreshold,
		PixelDiffThreshold: r.cfg.Frames.PixelDiffThreshold,
		TriggerWindow:      r.cfg.Frames.TriggerWindowSeconds,
	}
	selected, err := selector.Select(out.frames, sig)
	if err != nil {
		logger.Warn("pixel diff scoring failed", logging.Error(err))
		sig.Differ = nil
		selected, _ = selector.Select(out.frames, sig)
		out.selected = selected
		r.report(t, label, StageSelect, StatusDegraded, "selected without pixel diff: "+err.Error())
		return
	}
	out.selected = selected
	r.report(t, label, StageSelect, StatusSuccess, fmt.Sprintf("%d of %d frames", len(selected), len(out.frames)))
}

func (r *Runner) runGestureStage(t *tracker, out *videoOutput, screen recording.Screen, meta recording.Metadata, logger *slog.Logger) {
	label := screen.Label()
	switch {
	case !r.cfg.Gestures.Enabled || r.providers.Detector == nil:
		r.report(t, label, StageGestures, StatusSkipped, "gesture detection disabled")
		return
	case out.detectErr != nil:
		r.report(t, label, StageGestures, StatusDegraded, out.detectErr.Error())
		return
	case len(out.selected) == 0 || len(out.detections) == 0:
		r.report(t, label, StageGestures, StatusSkipped, "no frames to analyze")
		return
	}

	w, h := meta.ViewportSize.W, meta.ViewportSize.H
	if w == 0 || h == 0 {
		var err error
		if w, h, err = imageSize(screen.ScreenshotPath()); err != nil {
			logger.Warn("screenshot size unknown", logging.Error(err))
			r.report(t, label, StageGestures, StatusDegraded, "screenshot unreadable: "+err.Error())
			return
		}
	}
	mapper := gestures.Mapper{ScreenshotW: w, ScreenshotH: h}

	detections := make([]gestures.Detection, len(out.selected))
	timestamps := make([]float64, len(out.selected))
	paths := make([]string, len(out.selected))
	for i, sel := range out.selected {
		if sel.Frame.Index < len(out.detections) {
			detections[i] = out.detections[sel.Frame.Index]
		}
		timestamps[i] = sel.Frame.Timestamp
		paths[i] = sel.Frame.Path
	}
	out.events = mapper.Events(detections, timestamps, paths, r.cfg.Gestures.Sensitivity)
	r.report(t, label, StageGestures, StatusSuccess, fmt.Sprintf("%d pointing gestures", len(out.events)))
}

func (r *Runner) runOCRStage(ctx context.Context, t *tracker, out *videoOutput, screen recording.Screen, outDir string, logger *slog.Logger) {
	label := screen.Label()
	if !r.cfg.OCR.Enabled || r.providers.OCR == nil {
		r.report(t, label, StageOCR, StatusSkipped, "ocr disabled")
		return
	}
	r.announce(label, StageOCR, "recognizing screenshot text")
	processor := regionocr.Processor{
		Engine:     r.providers.OCR,
		RegionSize: r.cfg.Gestures.RegionSize,
		WorkDir:    filepath.Join(outDir, "regions"),
	}
	sctx, cancel := r.stageContext(ctx)
	defer cancel()

	status := StatusSuccess
	detail := ""
	full, err := processor.FullScreenshot(sctx, screen.ScreenshotPath())
	if err != nil {
		logger.Warn("screenshot ocr failed", logging.Error(err))
		status, detail = StatusDegraded, err.Error()
	} else {
		out.fullOCR = full
	}

	regions, err := processor.GestureRegions(sctx, screen.ScreenshotPath(), out.events)
	if err != nil {
		logger.Warn("gesture region ocr failed", logging.Error(err))
		status, detail = StatusDegraded, err.Error()
	} else {
		out.regions = regions
	}

	if markings, err := screen.LoadMarkings(); err != nil {
		logger.Warn("markings unreadable", logging.Error(err))
	} else if len(markings) > 0 {
		boxes := make([]regionocr.Box, len(markings))
		for i, m := range markings {
			boxes[i] = regionocr.Box{X1: m.X, Y1: m.Y, X2: m.X + m.W, Y2: m.Y + m.H}
		}
		marked, err := processor.MarkedRegions(sctx, screen.ScreenshotPath(), boxes)
		if err != nil {
			logger.Warn("marked region ocr failed", logging.Error(err))
			status, detail = StatusDegraded, err.Error()
		} else {
			out.marked = marked
		}
	}

	if status == StatusSuccess {
		detail = fmt.Sprintf("%d lines, %d gesture regions", len(out.fullOCR), len(out.regions))
	}
	r.report(t, label, StageOCR, status, detail)
}

func (r *Runner) runAudioBranch(ctx context.Context, t *tracker, screen recording.Screen, logger *slog.Logger) audioOutput {
	var out audioOutput
	label := screen.Label()

	if r.aborted(ctx, t, label, StageTranscribe, StageTriggers) {
		return out
	}
	if r.providers.Speech == nil {
		r.report(t, label, StageTranscribe, StatusSkipped, "transcription disabled")
	} else {
		r.announce(label, StageTranscribe, "transcribing audio")
		sctx, cancel := r.stageContext(ctx)
		result, err := r.providers.Speech.Transcribe(sctx, screen.AudioPath(), r.cfg.Speech.Language)
		cancel()
		switch {
		case err != nil && ctx.Err() != nil:
			r.report(t, label, StageTranscribe, StatusAborted, "cancelled")
			r.report(t, label, StageTriggers, StatusAborted, "cancelled")
			return out
		case err != nil:
			logger.Warn("transcription failed", logging.Error(err))
			r.report(t, label, StageTranscribe, StatusDegraded, err.Error())
		default:
			out.result = result
			r.recordSpeechCost(ctx, label, screen, result)
			r.report(t, label, StageTranscribe, StatusSuccess,
				fmt.Sprintf("%d segments via %s", len(result.Segments), result.Provider))
		}
	}

	if r.aborted(ctx, t, label, StageTriggers) {
		return out
	}
	r.announce(label, StageTriggers, "classifying trigger words")
	classifier := triggers.NewClassifier(r.cfg.Triggers.Words)
	out.annotated, out.events = classifier.Annotate(out.result.Segments)
	if len(out.result.Segments) == 0 {
		r.report(t, label, StageTriggers, StatusSkipped, "no transcript segments")
	} else {
		r.report(t, label, StageTriggers, StatusSuccess, fmt.Sprintf("%d trigger events", len(out.events)))
	}
	return out
}

// recordSpeechCost bills metered cloud transcription by audio length.
func (r *Runner) recordSpeechCost(ctx context.Context, label string, screen recording.Screen, result transcribe.Result) {
	if r.ledger == nil || result.Provider != "cloud" || r.providers.SpeechCostModel == "" {
		return
	}
	minutes := 0.0
	if info, err := r.providers.Media.Probe(ctx, screen.AudioPath()); err == nil {
		minutes = info.DurationSeconds / 60
	} else if n := len(result.Segments); n > 0 {
		minutes = result.Segments[n-1].End / 60
	}
	entry := r.ledger.Record(label, result.Provider, r.providers.SpeechCostModel, minutes)
	if r.ledger.ShouldWarn() {
		r.logger.Warn("budget warning threshold crossed",
			logging.Float64("run_total_euro", r.ledger.Total()),
			logging.Float64("entry_euro", entry.CostEuro))
	}
}

func (r *Runner) export(t *tracker, screen recording.Screen, outDir string, meta recording.Metadata, video videoOutput, audio audioOutput, outcome Outcome) (string, error) {
	label := screen.Label()
	r.announce(label, StageExport, "writing artifacts")

	artifacts := []struct {
		name string
		data any
	}{
		{recording.GestureEventsFile, video.events},
		{recording.TranscriptSegmentsFile, audio.annotated},
		{recording.TriggerEventsFile, audio.events},
		{recording.ScreenshotOCRFile, video.fullOCR},
		{recording.RegionOCRFile, append(append([]regionocr.Region{}, video.regions...), video.marked...)},
		{recording.AnnotationsFile, outcome.Annotations},
	}
	for _, artifact := range artifacts {
		if _, err := recording.WriteArtifact(outDir, artifact.name, artifact.data); err != nil {
			r.report(t, label, StageExport, StatusAborted, err.Error())
			return "", err
		}
	}

	_, degraded := t.snapshot()
	doc := report.Assemble(report.Input{
		Screen:      screen,
		Meta:        meta,
		GeneratedAt: time.Now(),
		Transcript:  audio.result,
		ScreenText:  video.fullOCR,
		Annotations: outcome.Annotations,
		Summary:     outcome.Summary,
		Degraded:    degraded,
		CostEuro:    r.screenCost(label),
	})
	path := filepath.Join(outDir, recording.ReportFile)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		r.report(t, label, StageExport, StatusAborted, err.Error())
		return "", err
	}
	r.report(t, label, StageExport, StatusSuccess, path)
	return path, nil
}

func (r *Runner) screenCost(label string) float64 {
	if r.ledger == nil {
		return 0
	}
	return r.ledger.ScreenTotal(label)
}

func (r *Runner) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(r.cfg.Workflow.StageTimeoutSeconds) * time.Second
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// aborted reports stages as aborted when the run context is cancelled.
// Cancellation takes effect at stage boundaries only.
func (r *Runner) aborted(ctx context.Context, t *tracker, label string, stages ...Stage) bool {
	if ctx.Err() == nil {
		return false
	}
	for _, stage := range stages {
		r.report(t, label, stage, StatusAborted, "cancelled")
	}
	return true
}

func (r *Runner) announce(screen string, stage Stage, message string) {
	if r.progress == nil {
		return
	}
	r.progress(Event{
		Screen:  screen,
		Stage:   stage,
		Index:   stageIndex(stage),
		Total:   StageCount(),
		Message: message,
	})
}

func (r *Runner) report(t *tracker, screen string, stage Stage, status Status, detail string) {
	t.record(StageResult{Stage: stage, Status: status, Detail: detail})
	if r.progress == nil {
		return
	}
	r.progress(Event{
		Screen:  screen,
		Stage:   stage,
		Index:   stageIndex(stage),
		Total:   StageCount(),
		Status:  status,
		Message: detail,
	})
}

// tracker collects stage results from both branches.
type tracker struct {
	mu      sync.Mutex
	results []StageResult
}

func (t *tracker) record(r StageResult) {
	t.mu.Lock()
	t.results = append(t.results, r)
	t.mu.Unlock()
}

// snapshot returns results in stage order plus the degraded stage notes.
func (t *tracker) snapshot() ([]StageResult, []string) {
	t.mu.Lock()
	results := make([]StageResult, len(t.results))
	copy(results, t.results)
	t.mu.Unlock()

	ordered := make([]StageResult, 0, len(results))
	for _, stage := range stageOrder {
		for _, res := range results {
			if res.Stage == stage {
				ordered = append(ordered, res)
			}
		}
	}
	var degraded []string
	for _, res := range ordered {
		if res.Status == StatusDegraded {
			degraded = append(degraded, fmt.Sprintf("%s degraded: %s", res.Stage, res.Detail))
		}
	}
	return ordered, degraded
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
