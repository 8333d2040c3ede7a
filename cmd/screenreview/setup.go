package main

import (
	"log/slog"
	"path/filepath"

	"screenreview/internal/config"
	"screenreview/internal/logging"
	"screenreview/internal/pipeline"
	"screenreview/internal/services/cloudspeech"
	"screenreview/internal/services/ffmpeg"
	"screenreview/internal/services/handtrack"
	"screenreview/internal/services/llm"
	"screenreview/internal/services/tesseractocr"
	"screenreview/internal/services/whisperx"
	"screenreview/internal/transcribe"
)

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stderr",
			filepath.Join(cfg.Paths.LogDir, "screenreview.log"),
		},
	})
}

// buildProviders assembles the capability providers the pipeline runs on.
// Disabled features leave their provider nil, which skips the stage.
func buildProviders(cfg *config.Config, logger *slog.Logger) pipeline.Providers {
	providers := pipeline.Providers{
		Media:           ffmpeg.NewService(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		Speech:          buildSpeechChain(cfg, logger),
		SpeechCostModel: cfg.Speech.CloudModel,
	}
	if cfg.Gestures.Enabled {
		providers.Detector = handtrack.NewService(cfg.Gestures.Binary)
	}
	if cfg.OCR.Enabled {
		providers.OCR = tesseractocr.NewService(cfg.OCR.Binary, cfg.OCR.Languages)
	}
	if cfg.Analysis.Enabled && cfg.Analysis.APIKey != "" {
		providers.Analyzer = llm.NewClient(llm.Config{
			APIKey:         cfg.Analysis.APIKey,
			BaseURL:        cfg.Analysis.BaseURL,
			Model:          cfg.Analysis.Model,
			Referer:        cfg.Analysis.Referer,
			Title:          cfg.Analysis.Title,
			TimeoutSeconds: cfg.Analysis.TimeoutSeconds,
		})
	}
	return providers
}

// buildSpeechChain orders transcription providers by preference. The local
// provider comes first; the cloud endpoint serves as fallback when a key is
// configured.
func buildSpeechChain(cfg *config.Config, logger *slog.Logger) *transcribe.Chain {
	var providers []transcribe.Provider
	switch cfg.Speech.Provider {
	case "whisperx":
		providers = append(providers, whisperx.NewService(whisperx.Config{
			Model:   cfg.Speech.WhisperXModel,
			BaseDir: cfg.Paths.DataDir,
		}))
		if cfg.Speech.CloudAPIKey != "" {
			providers = append(providers, newCloudSpeech(cfg))
		}
	case "cloud":
		providers = append(providers, newCloudSpeech(cfg))
	default:
		return nil
	}
	return transcribe.NewChain(logger, providers...)
}

func newCloudSpeech(cfg *config.Config) transcribe.Provider {
	return cloudspeech.NewClient(cloudspeech.Config{
		BaseURL:        cfg.Speech.CloudBaseURL,
		Model:          cfg.Speech.CloudModel,
		APIKey:         cfg.Speech.CloudAPIKey,
		TimeoutSeconds: cfg.Speech.TimeoutSeconds,
	})
}
