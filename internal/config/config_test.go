package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, loadedFrom, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("exists = true for a missing file")
	}
	if loadedFrom != path {
		t.Fatalf("loadedFrom = %q, want %q", loadedFrom, path)
	}
	if cfg.Speech.Provider != "whisperx" {
		t.Fatalf("Speech.Provider = %q", cfg.Speech.Provider)
	}
	if cfg.Frames.MaxPerScreen != 10 {
		t.Fatalf("Frames.MaxPerScreen = %d", cfg.Frames.MaxPerScreen)
	}
	if cfg.Paths.ExtractionDir != ".extraction" {
		t.Fatalf("Paths.ExtractionDir = %q", cfg.Paths.ExtractionDir)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("DataDir not expanded: %q", cfg.Paths.DataDir)
	}
}

func TestLoadAppliesOverridesAndNormalizes(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(base, "data") + `"

[frames]
extraction_fps = 2.0
max_per_screen = 6

[speech]
provider = "NONE"
language = "EN"

[correlation]
tolerance_seconds = 1.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("exists = false for a written file")
	}
	if cfg.Frames.ExtractionFPS != 2.0 || cfg.Frames.MaxPerScreen != 6 {
		t.Fatalf("frames overrides not applied: %+v", cfg.Frames)
	}
	if cfg.Speech.Provider != "none" || cfg.Speech.Language != "en" {
		t.Fatalf("speech not lowercased: %+v", cfg.Speech)
	}
	if cfg.Correlation.ToleranceSeconds != 1.5 {
		t.Fatalf("tolerance = %v", cfg.Correlation.ToleranceSeconds)
	}
	if cfg.Workflow.MaxConcurrentScreens != 2 {
		t.Fatalf("workflow defaults lost: %+v", cfg.Workflow)
	}
}

func TestLoadEnvOverridesAPIKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-speech-key")
	t.Setenv("OPENROUTER_API_KEY", "env-analysis-key")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Speech.CloudAPIKey != "env-speech-key" {
		t.Fatalf("CloudAPIKey = %q", cfg.Speech.CloudAPIKey)
	}
	if cfg.Analysis.APIKey != "env-analysis-key" {
		t.Fatalf("Analysis.APIKey = %q", cfg.Analysis.APIKey)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[frames\nbroken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		fragment string
	}{
		{"zero fps", func(c *Config) { c.Frames.ExtractionFPS = 0 }, "extraction_fps"},
		{"too few frames", func(c *Config) { c.Frames.MaxPerScreen = 1 }, "max_per_screen"},
		{"audio threshold range", func(c *Config) { c.Frames.AudioThreshold = 1.5 }, "audio_threshold"},
		{"unknown provider", func(c *Config) { c.Speech.Provider = "dictaphone" }, "speech.provider"},
		{"cloud without key", func(c *Config) { c.Speech.Provider = "cloud"; c.Speech.CloudAPIKey = "" }, "cloud_api_key"},
		{"negative tolerance", func(c *Config) { c.Correlation.ToleranceSeconds = -1 }, "tolerance_seconds"},
		{"warning above limit", func(c *Config) { c.Cost.WarningAtEuro = 2 }, "warning_at_euro"},
		{"zero workers", func(c *Config) { c.Workflow.MaxConcurrentScreens = 0 }, "max_concurrent_screens"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.fragment) {
				t.Fatalf("error %q does not mention %q", err, tt.fragment)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}

	got, err := ExpandPath("~/review/data")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if want := filepath.Join(home, "review", "data"); got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}

	got, err = ExpandPath("relative/dir")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("relative path not absolute: %q", got)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("Load sample: exists=%v err=%v", exists, err)
	}
}
