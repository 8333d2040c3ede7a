package preflight

import (
	"context"

	"screenreview/internal/config"
	"screenreview/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeDiskBytes is the working space frame extraction needs before a
// batch is allowed to start.
const minFreeDiskBytes = 1 << 30

// RunAll executes all applicable environment checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDiskSpace("Disk space", cfg.Paths.DataDir, minFreeDiskBytes))

	if cfg.Analysis.Enabled {
		results = append(results, CheckAnalysisAPI(ctx, cfg))
	}
	return results
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out
// to. Both the preflight command and queue status use this so the
// requirements list lives in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for frame and audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	}
	if cfg.OCR.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "Tesseract",
			Command:     cfg.OCR.Binary,
			Description: "Required for screenshot text recognition",
		})
	}
	if cfg.Gestures.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "Gesture detector",
			Command:     cfg.Gestures.Binary,
			Description: "Maps webcam pointing gestures onto the screenshot",
			Optional:    true,
		})
	}
	if cfg.Speech.Provider == "whisperx" {
		requirements = append(requirements, deps.Requirement{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Required for WhisperX-driven transcription",
		})
	}
	return deps.CheckBinaries(requirements)
}
