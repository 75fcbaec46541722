// Package config loads versegraph settings from YAML or TOML files and
// VERSEGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/physics"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "VERSEGRAPH_"

var (
	// ErrInvalidConfig is returned when a loaded configuration fails validation
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownFormat is returned for config files that are neither YAML nor TOML
	ErrUnknownFormat = errors.New("unknown config format")
)

var validate = validator.New()

// Config holds all versegraph settings
type Config struct {
	Viewport    models.Viewport     `yaml:"viewport" toml:"viewport"`
	Force       physics.ForceConfig `yaml:"force" toml:"force"`
	Interaction interaction.Options `yaml:"interaction" toml:"interaction"`
	Layout      LayoutConfig        `yaml:"layout" toml:"layout"`
	Publish     PublishConfig       `yaml:"publish" toml:"publish"`
	Scheduler   SchedulerConfig     `yaml:"scheduler" toml:"scheduler"`
	Log         LogConfig           `yaml:"log" toml:"log"`
	Server      ServerConfig        `yaml:"server" toml:"server"`
	Watch       WatchConfig         `yaml:"watch" toml:"watch"`
}

// LayoutConfig controls initial placement
type LayoutConfig struct {
	Seed  int64 `yaml:"seed" toml:"seed"`
	Noise bool  `yaml:"noise" toml:"noise"` // simplex noise jitter instead of uniform
}

// PublishConfig controls snapshot throttling
type PublishConfig struct {
	Every int `yaml:"every" toml:"every" validate:"gte=1"`
}

// SchedulerConfig controls frame pacing for live layouts
type SchedulerConfig struct {
	FPS float64 `yaml:"fps" toml:"fps" validate:"gt=0,lte=240"`
}

// LogConfig controls logging
type LogConfig struct {
	Level       string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development" toml:"development"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	Addr           string   `yaml:"addr" toml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// WatchConfig controls file watching
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms" toml:"debounce_ms" validate:"gte=0"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Viewport:    models.Viewport{Width: 800, Height: 600},
		Force:       physics.DefaultForceConfig(),
		Interaction: interaction.DefaultOptions(),
		Layout:      LayoutConfig{Seed: 1},
		Publish:     PublishConfig{Every: 3},
		Scheduler:   SchedulerConfig{FPS: 60},
		Log:         LogConfig{Level: "info"},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Watch: WatchConfig{DebounceMillis: 250},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return nil
}

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// applyEnv overrides fields from VERSEGRAPH_* variables
func (c *Config) applyEnv() error {
	var err error
	if c.Viewport.Width, err = getEnvFloat("WIDTH", c.Viewport.Width); err != nil {
		return err
	}
	if c.Viewport.Height, err = getEnvFloat("HEIGHT", c.Viewport.Height); err != nil {
		return err
	}
	if c.Scheduler.FPS, err = getEnvFloat("FPS", c.Scheduler.FPS); err != nil {
		return err
	}
	if c.Publish.Every, err = getEnvInt("PUBLISH_EVERY", c.Publish.Every); err != nil {
		return err
	}
	seed, err := getEnvInt("SEED", int(c.Layout.Seed))
	if err != nil {
		return err
	}
	c.Layout.Seed = int64(seed)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Development = getEnvBool("LOG_DEVELOPMENT", c.Log.Development)
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalidConfig, EnvPrefix, key, value)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalidConfig, EnvPrefix, key, value)
	}
	return f, nil
}
