// Package config loads docscan configuration from a YAML file, an optional
// .env file and DOCSCAN_* environment variables, and maps it onto the
// option structs of the pipeline components.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/fallback"
	"github.com/ironsheep/docscan/internal/logging"
	"github.com/ironsheep/docscan/internal/overlay"
	"github.com/ironsheep/docscan/internal/pipeline"
	"github.com/ironsheep/docscan/internal/rectify"
	"github.com/ironsheep/docscan/internal/stability"
)

// Config holds all docscan configuration.
type Config struct {
	Processing ProcessingConfig `yaml:"processing"`
	Stability  StabilityConfig  `yaml:"stability"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	Fallback   FallbackConfig   `yaml:"fallback"`
	Capture    CaptureConfig    `yaml:"capture"`
	Store      StoreConfig      `yaml:"store"`
	Preview    PreviewConfig    `yaml:"preview"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProcessingConfig tunes the frame processor.
type ProcessingConfig struct {
	MaxSide      int     `yaml:"max_side"`
	MinAreaRatio float64 `yaml:"min_area_ratio"`
	EpsilonRatio float64 `yaml:"epsilon_ratio"`
	TargetFPS    int     `yaml:"target_fps"`
}

// StabilityConfig tunes the stability tracker.
type StabilityConfig struct {
	Alpha            float64       `yaml:"alpha"`
	EnterFactor      float64       `yaml:"enter_factor"`
	ExitFactor       float64       `yaml:"exit_factor"`
	LockAfter        time.Duration `yaml:"lock_after"`
	Cooldown         time.Duration `yaml:"cooldown"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	DarkThreshold    float64       `yaml:"dark_threshold"`
}

// OverlayConfig tunes the overlay spring animation.
type OverlayConfig struct {
	TargetOmega  float64       `yaml:"target_omega"`
	RelaxOmega   float64       `yaml:"relax_omega"`
	FadeRate     float64       `yaml:"fade_rate"`
	DrawInterval time.Duration `yaml:"draw_interval"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

// FallbackConfig configures the remote detector.
type FallbackConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	MissAfter time.Duration `yaml:"miss_after"`
	Backoff   time.Duration `yaml:"backoff"`
	Timeout   time.Duration `yaml:"timeout"`
	Hold      time.Duration `yaml:"hold"`
}

// CaptureConfig controls capture and rectification output.
type CaptureConfig struct {
	Auto    bool   `yaml:"auto"`
	Enhance string `yaml:"enhance"` // none, grayscale, bw, sharpen
	BWLevel int    `yaml:"bw_level"`
	MaxSide int    `yaml:"max_side"`
	Format  string `yaml:"format"` // jpeg or png
	Quality int    `yaml:"quality"`
}

// StoreConfig configures the capture log.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	DBPath  string `yaml:"db_path"`
}

// PreviewConfig configures the websocket preview server.
type PreviewConfig struct {
	Addr   string `yaml:"addr"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the built-in configuration.
func Default() *Config {
	proc := detection.DefaultOptions()
	stab := stability.DefaultOptions()
	ov := overlay.DefaultOptions()
	fb := fallback.DefaultOptions()
	ctl := pipeline.DefaultOptions()

	return &Config{
		Processing: ProcessingConfig{
			MaxSide:      proc.MaxSide,
			MinAreaRatio: proc.MinAreaRatio,
			EpsilonRatio: proc.EpsilonRatio,
			TargetFPS:    ctl.TargetFPS,
		},
		Stability: StabilityConfig{
			Alpha:            stab.Alpha,
			EnterFactor:      stab.EnterFactor,
			ExitFactor:       stab.ExitFactor,
			LockAfter:        stab.LockAfter,
			Cooldown:         stab.Cooldown,
			SnapshotInterval: stab.SnapshotInterval,
			DarkThreshold:    ctl.DarkThreshold,
		},
		Overlay: OverlayConfig{
			TargetOmega:  ov.TargetOmega,
			RelaxOmega:   ov.RelaxOmega,
			FadeRate:     ov.FadeRate,
			DrawInterval: ov.DrawInterval,
			TickInterval: ov.TickInterval,
		},
		Fallback: FallbackConfig{
			MissAfter: fb.MissAfter,
			Backoff:   fb.Backoff,
			Timeout:   fb.Timeout,
			Hold:      ctl.FallbackHold,
		},
		Capture: CaptureConfig{
			Auto:    ctl.AutoCapture,
			Enhance: string(rectify.ModeNone),
			BWLevel: 128,
			Format:  "jpeg",
			Quality: 90,
		},
		Store: StoreConfig{
			Dir:    "captures",
			DBPath: "captures/captures.db",
		},
		Preview: PreviewConfig{
			Addr:   "127.0.0.1:8088",
			Width:  1280,
			Height: 720,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path skips the file. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	p := c.Processing
	if p.MaxSide < 64 {
		return fmt.Errorf("processing.max_side must be at least 64, got %d", p.MaxSide)
	}
	if p.MinAreaRatio <= 0 || p.MinAreaRatio >= 1 {
		return fmt.Errorf("processing.min_area_ratio must be in (0,1), got %g", p.MinAreaRatio)
	}
	if p.EpsilonRatio <= 0 || p.EpsilonRatio >= 0.5 {
		return fmt.Errorf("processing.epsilon_ratio must be in (0,0.5), got %g", p.EpsilonRatio)
	}
	if p.TargetFPS < 1 || p.TargetFPS > 240 {
		return fmt.Errorf("processing.target_fps must be between 1 and 240, got %d", p.TargetFPS)
	}

	s := c.Stability
	if s.Alpha <= 0 || s.Alpha > 1 {
		return fmt.Errorf("stability.alpha must be in (0,1], got %g", s.Alpha)
	}
	if s.EnterFactor <= 0 {
		return fmt.Errorf("stability.enter_factor must be positive, got %g", s.EnterFactor)
	}
	if s.ExitFactor < 1 {
		return fmt.Errorf("stability.exit_factor must be at least 1, got %g", s.ExitFactor)
	}
	if s.LockAfter <= 0 || s.Cooldown < 0 || s.SnapshotInterval < 0 {
		return errors.New("stability durations must not be negative and lock_after must be positive")
	}

	if c.Overlay.TargetOmega <= 0 || c.Overlay.RelaxOmega <= 0 || c.Overlay.FadeRate <= 0 {
		return errors.New("overlay omegas and fade_rate must be positive")
	}

	if c.Fallback.Enabled && c.Fallback.URL == "" {
		return errors.New("fallback.url is required when fallback is enabled")
	}
	if c.Fallback.Timeout <= 0 {
		return fmt.Errorf("fallback.timeout must be positive, got %s", c.Fallback.Timeout)
	}
	if c.Fallback.Hold < 0 {
		return fmt.Errorf("fallback.hold must not be negative, got %s", c.Fallback.Hold)
	}

	if _, err := rectify.ParseMode(c.Capture.Enhance); err != nil {
		return fmt.Errorf("capture.enhance: %w", err)
	}
	if c.Capture.BWLevel < 0 || c.Capture.BWLevel > 255 {
		return fmt.Errorf("capture.bw_level must be between 0 and 255, got %d", c.Capture.BWLevel)
	}
	if c.Capture.MaxSide < 0 {
		return fmt.Errorf("capture.max_side must not be negative, got %d", c.Capture.MaxSide)
	}
	switch strings.ToLower(c.Capture.Format) {
	case "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("capture.format must be jpeg or png, got %q", c.Capture.Format)
	}
	if c.Capture.Quality < 1 || c.Capture.Quality > 100 {
		return fmt.Errorf("capture.quality must be between 1 and 100, got %d", c.Capture.Quality)
	}

	if c.Store.Enabled && (c.Store.Dir == "" || c.Store.DBPath == "") {
		return errors.New("store.dir and store.db_path are required when the store is enabled")
	}
	return nil
}

// ProcessorOptions maps the processing section.
func (c *Config) ProcessorOptions() detection.Options {
	return detection.Options{
		MaxSide:      c.Processing.MaxSide,
		MinAreaRatio: c.Processing.MinAreaRatio,
		EpsilonRatio: c.Processing.EpsilonRatio,
	}
}

// TrackerOptions maps the stability section.
func (c *Config) TrackerOptions() stability.Options {
	s := c.Stability
	return stability.Options{
		Alpha:            s.Alpha,
		EnterFactor:      s.EnterFactor,
		ExitFactor:       s.ExitFactor,
		LockAfter:        s.LockAfter,
		Cooldown:         s.Cooldown,
		SnapshotInterval: s.SnapshotInterval,
	}
}

// OverlayOptions maps the overlay section onto the renderer defaults.
func (c *Config) OverlayOptions() overlay.Options {
	opts := overlay.DefaultOptions()
	opts.TargetOmega = c.Overlay.TargetOmega
	opts.RelaxOmega = c.Overlay.RelaxOmega
	opts.FadeRate = c.Overlay.FadeRate
	opts.DrawInterval = c.Overlay.DrawInterval
	opts.TickInterval = c.Overlay.TickInterval
	return opts
}

// FallbackOptions maps the fallback section.
func (c *Config) FallbackOptions() fallback.Options {
	return fallback.Options{
		MissAfter: c.Fallback.MissAfter,
		Backoff:   c.Fallback.Backoff,
		Timeout:   c.Fallback.Timeout,
	}
}

// RectifyOptions maps the capture section. Validate must have passed.
func (c *Config) RectifyOptions() rectify.Options {
	mode, _ := rectify.ParseMode(c.Capture.Enhance)
	return rectify.Options{
		Enhance: mode,
		BWLevel: uint8(c.Capture.BWLevel),
		MaxSide: c.Capture.MaxSide,
	}
}

// ControllerOptions maps the settings the pipeline controller reads.
func (c *Config) ControllerOptions() pipeline.Options {
	return pipeline.Options{
		TargetFPS:     c.Processing.TargetFPS,
		AutoCapture:   c.Capture.Auto,
		DarkThreshold: c.Stability.DarkThreshold,
		FallbackHold:  c.Fallback.Hold,
	}
}

// LoggerConfig maps the logging section.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Processing.MaxSide = getEnvAsInt("DOCSCAN_MAX_SIDE", cfg.Processing.MaxSide)
	cfg.Processing.MinAreaRatio = getEnvAsFloat("DOCSCAN_MIN_AREA_RATIO", cfg.Processing.MinAreaRatio)
	cfg.Processing.TargetFPS = getEnvAsInt("DOCSCAN_TARGET_FPS", cfg.Processing.TargetFPS)

	cfg.Stability.LockAfter = getEnvAsDuration("DOCSCAN_LOCK_AFTER", cfg.Stability.LockAfter)
	cfg.Stability.Cooldown = getEnvAsDuration("DOCSCAN_COOLDOWN", cfg.Stability.Cooldown)
	cfg.Stability.DarkThreshold = getEnvAsFloat("DOCSCAN_DARK_THRESHOLD", cfg.Stability.DarkThreshold)

	cfg.Fallback.URL = getEnv("DOCSCAN_FALLBACK_URL", cfg.Fallback.URL)
	cfg.Fallback.APIKey = getEnv("DOCSCAN_FALLBACK_API_KEY", cfg.Fallback.APIKey)
	cfg.Fallback.Enabled = getEnvAsBool("DOCSCAN_FALLBACK_ENABLED", cfg.Fallback.Enabled)
	cfg.Fallback.Timeout = getEnvAsDuration("DOCSCAN_FALLBACK_TIMEOUT", cfg.Fallback.Timeout)
	cfg.Fallback.Hold = getEnvAsDuration("DOCSCAN_FALLBACK_HOLD", cfg.Fallback.Hold)

	cfg.Capture.Auto = getEnvAsBool("DOCSCAN_AUTO_CAPTURE", cfg.Capture.Auto)
	cfg.Capture.Enhance = getEnv("DOCSCAN_ENHANCE", cfg.Capture.Enhance)

	cfg.Store.Enabled = getEnvAsBool("DOCSCAN_STORE_ENABLED", cfg.Store.Enabled)
	cfg.Store.Dir = getEnv("DOCSCAN_STORE_DIR", cfg.Store.Dir)
	cfg.Store.DBPath = getEnv("DOCSCAN_STORE_DB", cfg.Store.DBPath)

	cfg.Preview.Addr = getEnv("DOCSCAN_PREVIEW_ADDR", cfg.Preview.Addr)

	cfg.Logging.Level = getEnv("DOCSCAN_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("DOCSCAN_LOG_FORMAT", cfg.Logging.Format)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
