// Package config loads gesturefield settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every environment variable name.
const Prefix = "GESTUREFIELD_"

// Config holds all runtime settings. Every field maps to GESTUREFIELD_<env tag>.
type Config struct {
	// HTTP control surface
	Addr      string `env:"ADDR" envDefault:":8080"`
	StaticDir string `env:"STATIC_DIR"`

	// Camera
	CameraID       int           `env:"CAMERA" envDefault:"0"`
	FrameWidth     int           `env:"FRAME_WIDTH" envDefault:"640"`
	FrameHeight    int           `env:"FRAME_HEIGHT" envDefault:"480"`
	AcquireTimeout time.Duration `env:"ACQUIRE_TIMEOUT" envDefault:"10s"`
	ReadyTimeout   time.Duration `env:"READY_TIMEOUT" envDefault:"5s"`

	// Loop cadence
	FrameInterval  time.Duration `env:"FRAME_INTERVAL" envDefault:"16ms"`
	RenderInterval time.Duration `env:"RENDER_INTERVAL" envDefault:"16ms"`

	// Initial particle settings, overridden by stored preferences
	Template      string `env:"TEMPLATE" envDefault:"stars"`
	Color         string `env:"COLOR" envDefault:"#f272c8"`
	ParticleCount int    `env:"PARTICLES" envDefault:"5000"`
	Seed          uint64 `env:"SEED"`

	// Storage
	DataDir string `env:"DATA_DIR"`

	// Presentation
	Renderer string `env:"RENDERER" envDefault:"web"`
	Tray     bool   `env:"TRAY" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config and fills derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(homeDir, ".gesturefield")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.AcquireTimeout <= 0 || c.ReadyTimeout <= 0 {
		return fmt.Errorf("camera timeouts must be positive")
	}
	if c.FrameInterval <= 0 || c.RenderInterval <= 0 {
		return fmt.Errorf("loop intervals must be positive")
	}
	if c.ParticleCount <= 0 {
		return fmt.Errorf("particle count must be positive, got %d", c.ParticleCount)
	}
	switch c.Renderer {
	case "web", "terminal":
	default:
		return fmt.Errorf("unknown renderer %q (want web or terminal)", c.Renderer)
	}
	return nil
}

// DBPath returns the sqlite database location inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "gesturefield.db")
}
