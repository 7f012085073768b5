// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/reelgraph/internal/runner"
)

// Static errors for configuration validation.
var (
	// ErrInvalidTargetSize is returned when TARGET_WIDTH or TARGET_HEIGHT is not positive and even.
	ErrInvalidTargetSize = errors.New("config: TARGET_WIDTH and TARGET_HEIGHT must be positive and even")
	// ErrInvalidCRF is returned when VIDEO_CRF is outside [0, 51].
	ErrInvalidCRF = errors.New("config: VIDEO_CRF must be between 0 and 51")
	// ErrInvalidFrameRate is returned when FRAME_RATE is outside [1, 240].
	ErrInvalidFrameRate = errors.New("config: FRAME_RATE must be between 1 and 240")
	// ErrInvalidSampleRate is returned when SAMPLE_RATE is not positive.
	ErrInvalidSampleRate = errors.New("config: SAMPLE_RATE must be positive")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// Config holds all configuration for the application.
type Config struct {
	// Tool paths
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Output geometry
	TargetWidth  int `env:"TARGET_WIDTH, default=720" json:"target_width"`
	TargetHeight int `env:"TARGET_HEIGHT, default=1280" json:"target_height"`

	// Storage settings
	WorkDir string `env:"WORK_DIR, default=/tmp/reelgraph" json:"work_dir"`

	// Encoding settings
	VideoPreset  string `env:"VIDEO_PRESET, default=veryfast" json:"video_preset"`
	VideoCRF     int    `env:"VIDEO_CRF, default=23" json:"video_crf"`
	FrameRate    int    `env:"FRAME_RATE, default=30" json:"frame_rate"`
	AudioBitrate string `env:"AUDIO_BITRATE, default=128k" json:"audio_bitrate"`
	SampleRate   int    `env:"SAMPLE_RATE, default=44100" json:"sample_rate"`

	// Run diagnostics
	LogStart    bool `env:"LOG_START, default=true" json:"log_start"`
	LogProgress bool `env:"LOG_PROGRESS, default=false" json:"log_progress"`
	LogStderr   bool `env:"LOG_STDERR, default=false" json:"log_stderr"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if an S3 bucket is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(context.Background(), envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and option combinations.
func (c *Config) Validate() error {
	if c.TargetWidth <= 0 || c.TargetHeight <= 0 || c.TargetWidth%2 != 0 || c.TargetHeight%2 != 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidTargetSize, c.TargetWidth, c.TargetHeight)
	}
	if c.VideoCRF < 0 || c.VideoCRF > 51 {
		return fmt.Errorf("%w: got %d", ErrInvalidCRF, c.VideoCRF)
	}
	if c.FrameRate < 1 || c.FrameRate > 240 {
		return fmt.Errorf("%w: got %d", ErrInvalidFrameRate, c.FrameRate)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	return nil
}

// RunnerConfig maps the encoding and diagnostics settings onto the runner.
func (c *Config) RunnerConfig() runner.Config {
	return runner.Config{
		FFmpegPath:   c.FFmpegPath,
		Preset:       c.VideoPreset,
		CRF:          c.VideoCRF,
		FrameRate:    c.FrameRate,
		AudioBitrate: c.AudioBitrate,
		SampleRate:   c.SampleRate,
		LogStart:     c.LogStart,
		LogProgress:  c.LogProgress,
		LogStderr:    c.LogStderr,
	}
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs. Logs go to stderr so
// stdout stays free for command output.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{FFmpegPath: %s, FFprobePath: %s, Target: %dx%d, WorkDir: %s, Preset: %s, CRF: %d, FrameRate: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.FFmpegPath,
		c.FFprobePath,
		c.TargetWidth,
		c.TargetHeight,
		c.WorkDir,
		c.VideoPreset,
		c.VideoCRF,
		c.FrameRate,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
