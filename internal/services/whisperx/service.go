package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"screenreview/internal/services"
	"screenreview/internal/transcribe"
)

// WhisperX invocation constants.
const (
	UVXCommand     = "uvx"
	DefaultModel   = "large-v3-turbo"
	pypiIndexURL   = "https://pypi.org/simple"
	cpuDevice      = "cpu"
	cpuComputeType = "float32"
)

// Config captures runtime settings for WhisperX transcription.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3-turbo").
	Model string
	// BaseDir receives per-call working directories. Empty uses the
	// system temp directory.
	BaseDir string
}

// Service runs WhisperX over uvx.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX transcription provider.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Name identifies this provider in transcripts and logs.
func (s *Service) Name() string { return "whisperx" }

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Available verifies uvx resolves on PATH.
func (s *Service) Available() error {
	if _, err := exec.LookPath(UVXCommand); err != nil {
		return services.Wrap(services.ErrProviderUnavailable, "transcribe", "lookup", "uvx not found", err)
	}
	return nil
}

// Transcribe runs WhisperX on the audio file and parses its JSON output
// into timestamped segments. The working directory is removed afterwards;
// the caller persists segments as an artifact.
func (s *Service) Transcribe(ctx context.Context, audioPath, language string) (transcribe.Result, error) {
	var result transcribe.Result
	if s.commandRunner == nil {
		if err := s.Available(); err != nil {
			return result, err
		}
	}

	workDir, err := os.MkdirTemp(s.cfg.BaseDir, "whisperx-")
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "create working directory", err)
	}
	defer os.RemoveAll(workDir)

	if err := s.run(ctx, UVXCommand, s.buildArgs(audioPath, workDir, language)...); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "whisperx failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	segments, err := loadSegments(filepath.Join(workDir, baseName+".json"))
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "read whisperx output", err)
	}
	result.Segments = segments
	result.Text = transcribe.FullText(segments)
	return result, nil
}

func (s *Service) buildArgs(audioPath, outputDir, language string) []string {
	args := []string{
		"--index-url", pypiIndexURL,
		"whisperx",
		audioPath,
		"--model", s.Model(),
		"--output_dir", outputDir,
		"--output_format", "json",
		"--segment_resolution", "sentence",
		"--device", cpuDevice,
		"--compute_type", cpuComputeType,
	}
	if language = strings.TrimSpace(language); language != "" {
		args = append(args, "--language", language)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// whisperXPayload is the JSON structure WhisperX writes.
type whisperXPayload struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func loadSegments(jsonPath string) ([]transcribe.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]transcribe.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, transcribe.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return segments, nil
}
