package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validateGestures(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateCorrelation(); err != nil {
		return err
	}
	if err := c.validateCost(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFrames() error {
	if c.Frames.ExtractionFPS <= 0 {
		return errors.New("frames.extraction_fps must be positive")
	}
	if c.Frames.MaxPerScreen < 2 {
		return errors.New("frames.max_per_screen must be at least 2 (first and last frames are always kept)")
	}
	if c.Frames.AudioThreshold < 0 || c.Frames.AudioThreshold > 1 {
		return errors.New("frames.audio_threshold must be between 0 and 1")
	}
	if c.Frames.PixelDiffThreshold < 0 || c.Frames.PixelDiffThreshold > 1 {
		return errors.New("frames.pixel_diff_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateGestures() error {
	if c.Gestures.Sensitivity < 0 || c.Gestures.Sensitivity > 1 {
		return errors.New("gestures.sensitivity must be between 0 and 1")
	}
	if c.Gestures.RegionSize <= 0 {
		return errors.New("gestures.region_size must be positive")
	}
	return nil
}

func (c *Config) validateSpeech() error {
	switch c.Speech.Provider {
	case "whisperx", "cloud", "none":
	default:
		return fmt.Errorf("speech.provider must be one of whisperx, cloud, none (got %q)", c.Speech.Provider)
	}
	if c.Speech.Provider == "cloud" && strings.TrimSpace(c.Speech.CloudAPIKey) == "" {
		return errors.New("speech.cloud_api_key is required when speech.provider is cloud (set OPENAI_API_KEY or edit the config)")
	}
	return nil
}

func (c *Config) validateCorrelation() error {
	if c.Correlation.ToleranceSeconds < 0 {
		return errors.New("correlation.tolerance_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateCost() error {
	if c.Cost.BudgetLimitEuro < 0 {
		return errors.New("cost.budget_limit_euro must not be negative")
	}
	if c.Cost.WarningAtEuro > c.Cost.BudgetLimitEuro {
		return errors.New("cost.warning_at_euro must not exceed cost.budget_limit_euro")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentScreens < 1 {
		return errors.New("workflow.max_concurrent_screens must be at least 1")
	}
	if c.Workflow.StageTimeoutSeconds < 1 {
		return errors.New("workflow.stage_timeout_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
}
