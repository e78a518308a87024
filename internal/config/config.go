package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Scan holds the navigation policy knobs. All bounds are tunable policy,
// not structure; the defaults are conservative.
type Scan struct {
	StabilityFrames   int           `mapstructure:"stability_frames"`    // K consecutive quiet frames
	StabilityPoll     time.Duration `mapstructure:"stability_poll"`      // frame poll interval
	StabilityAttempts int           `mapstructure:"stability_attempts"`  // polls before StabilityTimeout
	PixelDiffLimit    float64       `mapstructure:"pixel_diff_limit"`    // mean abs diff per pixel, 0..255
	SlotRetries       int           `mapstructure:"slot_retries"`        // recognition attempts per slot
	NoProgressLimit   int           `mapstructure:"no_progress_limit"`   // consecutive stuck-cursor events before abort
	CaptureRetries    int           `mapstructure:"capture_retries"`     // capture attempts before abort
	MinRarity         int           `mapstructure:"min_rarity"`          // early stop below this rarity
	MaxRarity         int           `mapstructure:"max_rarity"`
	MaxRows           int           `mapstructure:"max_rows"`            // 0 = no row limit
	Workers           int           `mapstructure:"workers"`             // parallel field recognitions
}

// Serial configures the input bridge port.
type Serial struct {
	Port     string        `mapstructure:"port"`
	BaudRate int           `mapstructure:"baud_rate"`
	Settle   time.Duration `mapstructure:"settle"`
}

// Model points at the trained recognizer artifacts.
type Model struct {
	WeightsPath  string `mapstructure:"weights_path"`
	AlphabetPath string `mapstructure:"alphabet_path"`
}

// Database configures optional MySQL export.
type Database struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Config is the full application configuration, read from config.yaml.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	// Resolution overrides autodetection, "1920x1080" style. Useful when
	// the game runs windowed on a larger desktop.
	Resolution string   `mapstructure:"resolution"`
	Scan       Scan     `mapstructure:"scan"`
	Serial     Serial   `mapstructure:"serial"`
	Model      Model    `mapstructure:"model"`
	Database   Database `mapstructure:"database"`
}

// ParseResolution splits a "WIDTHxHEIGHT" override. Returns ok=false when
// no override is set.
func (c *Config) ParseResolution() (w, h int, ok bool, err error) {
	if c.Resolution == "" {
		return 0, 0, false, nil
	}
	if _, err := fmt.Sscanf(c.Resolution, "%dx%d", &w, &h); err != nil || w < 1 || h < 1 {
		return 0, 0, false, fmt.Errorf("config: resolution %q not WIDTHxHEIGHT", c.Resolution)
	}
	return w, h, true, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("resolution", "")
	v.SetDefault("scan.stability_frames", 3)
	v.SetDefault("scan.stability_poll", "50ms")
	v.SetDefault("scan.stability_attempts", 40)
	v.SetDefault("scan.pixel_diff_limit", 2.0)
	v.SetDefault("scan.slot_retries", 2)
	v.SetDefault("scan.no_progress_limit", 3)
	v.SetDefault("scan.capture_retries", 3)
	v.SetDefault("scan.min_rarity", 4)
	v.SetDefault("scan.max_rarity", 5)
	v.SetDefault("scan.max_rows", 0)
	v.SetDefault("scan.workers", 4)
	v.SetDefault("serial.port", "COM3")
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.settle", "120ms")
	v.SetDefault("model.weights_path", "models/model.bin")
	v.SetDefault("model.alphabet_path", "models/alphabet.json")
	v.SetDefault("database.enabled", false)
}

// Init reads config.yaml from the working directory. A missing file is
// fine: every option has a default.
func Init() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	s := c.Scan
	if s.StabilityFrames < 1 || s.StabilityAttempts < s.StabilityFrames {
		return fmt.Errorf("config: stability_frames %d / stability_attempts %d inconsistent", s.StabilityFrames, s.StabilityAttempts)
	}
	if s.NoProgressLimit < 1 {
		return fmt.Errorf("config: no_progress_limit must be at least 1")
	}
	if s.SlotRetries < 1 || s.CaptureRetries < 1 {
		return fmt.Errorf("config: slot_retries %d / capture_retries %d must be at least 1", s.SlotRetries, s.CaptureRetries)
	}
	if s.MinRarity < 1 || s.MaxRarity > 5 || s.MinRarity > s.MaxRarity {
		return fmt.Errorf("config: rarity filter %d..%d invalid", s.MinRarity, s.MaxRarity)
	}
	if s.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1")
	}
	return nil
}
