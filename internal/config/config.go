package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	ExtractionDir string `toml:"extraction_dir"`
}

// Frames contains frame extraction and smart selection settings.
type Frames struct {
	ExtractionFPS        float64 `toml:"extraction_fps"`
	MaxPerScreen         int     `toml:"max_per_screen"`
	AudioThreshold       float64 `toml:"audio_threshold"`
	PixelDiffThreshold   float64 `toml:"pixel_diff_threshold"`
	TriggerWindowSeconds float64 `toml:"trigger_window_seconds"`
	ExtractionTimeout    int     `toml:"extraction_timeout"`
}

// Gestures contains pointing-gesture detection settings.
type Gestures struct {
	Enabled     bool    `toml:"enabled"`
	Binary      string  `toml:"binary"`
	Sensitivity float64 `toml:"sensitivity"`
	RegionSize  int     `toml:"region_size"`
}

// OCR contains text-recognition settings.
type OCR struct {
	Enabled   bool     `toml:"enabled"`
	Binary    string   `toml:"binary"`
	Languages []string `toml:"languages"`
}

// Speech contains transcription provider settings.
type Speech struct {
	Provider       string `toml:"provider"`
	Language       string `toml:"language"`
	WhisperXModel  string `toml:"whisperx_model"`
	CloudBaseURL   string `toml:"cloud_base_url"`
	CloudModel     string `toml:"cloud_model"`
	CloudAPIKey    string `toml:"cloud_api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Analysis contains AI summarization settings.
type Analysis struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Correlation contains gesture/transcript matching settings.
type Correlation struct {
	ToleranceSeconds float64 `toml:"tolerance_seconds"`
}

// Triggers allows overriding the built-in trigger keyword lists per category.
type Triggers struct {
	Words map[string][]string `toml:"words"`
}

// Cost contains budget enforcement settings.
type Cost struct {
	BudgetLimitEuro float64 `toml:"budget_limit_euro"`
	WarningAtEuro   float64 `toml:"warning_at_euro"`
	AutoStopAtLimit bool    `toml:"auto_stop_at_limit"`
}

// Workflow contains queue processing settings.
type Workflow struct {
	MaxConcurrentScreens int `toml:"max_concurrent_screens"`
	StageTimeoutSeconds  int `toml:"stage_timeout_seconds"`
	QueuePollInterval    int `toml:"queue_poll_interval"`
	ErrorRetryInterval   int `toml:"error_retry_interval"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Screens        bool   `toml:"screens"`
	Queue          bool   `toml:"queue"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for screenreview.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Frames        Frames        `toml:"frames"`
	Gestures      Gestures      `toml:"gestures"`
	OCR           OCR           `toml:"ocr"`
	Speech        Speech        `toml:"speech"`
	Analysis      Analysis      `toml:"analysis"`
	Correlation   Correlation   `toml:"correlation"`
	Triggers      Triggers      `toml:"triggers"`
	Cost          Cost          `toml:"cost"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/screenreview/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized, and API keys overridden from a
// .env file sitting next to the configuration when one exists.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides(filepath.Join(filepath.Dir(resolvedPath), ".env"))

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnvOverrides merges API keys from the process environment and an
// optional .env file. File values do not override already-set process values.
func (c *Config) applyEnvOverrides(envPath string) {
	if envPath != "" {
		// Best-effort: a missing .env is not an error.
		_ = godotenv.Load(envPath)
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		c.Speech.CloudAPIKey = key
	}
	if key := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")); key != "" {
		c.Analysis.APIKey = key
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("screenreview.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for queue and log storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for frame extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
