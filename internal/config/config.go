package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all bridge configuration.
type Config struct {
	Server  ServerConfig
	Display DisplayConfig
	Caps    CapabilityConfig
	Logging LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `envconfig:"FBRIDGE_HOST" default:"0.0.0.0"`
	Port string `envconfig:"FBRIDGE_PORT" default:"5900"`
}

// DisplayConfig holds per-display session configuration.
type DisplayConfig struct {
	MaxDisplays    int           `envconfig:"FBRIDGE_MAX_DISPLAYS" default:"1"`
	MaxWidth       uint16        `envconfig:"FBRIDGE_MAX_WIDTH" default:"1024"`
	MaxHeight      uint16        `envconfig:"FBRIDGE_MAX_HEIGHT" default:"768"`
	Format         string        `envconfig:"FBRIDGE_FORMAT" default:"rgb16-565"`
	ColorMapSize   int           `envconfig:"FBRIDGE_COLORMAP_SIZE" default:"256"`
	QueueDepth     int           `envconfig:"FBRIDGE_QUEUE_DEPTH" default:"64"`
	ConnectTimeout time.Duration `envconfig:"FBRIDGE_CONNECT_TIMEOUT" default:"30s"`
	MaxCursorSize  uint16        `envconfig:"FBRIDGE_MAX_CURSOR" default:"64"`
}

// CapabilityConfig toggles the optional device operations.
type CapabilityConfig struct {
	ColorMap    bool `envconfig:"FBRIDGE_CAP_COLORMAP" default:"true"`
	Cursor      bool `envconfig:"FBRIDGE_CAP_CURSOR" default:"true"`
	CursorSize  bool `envconfig:"FBRIDGE_CAP_CURSOR_SIZE" default:"true"`
	CursorImage bool `envconfig:"FBRIDGE_CAP_CURSOR_IMAGE" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"FBRIDGE_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"FBRIDGE_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "5900",
		},
		Display: DisplayConfig{
			MaxDisplays:    1,
			MaxWidth:       1024,
			MaxHeight:      768,
			Format:         "rgb16-565",
			ColorMapSize:   256,
			QueueDepth:     64,
			ConnectTimeout: 30 * time.Second,
			MaxCursorSize:  64,
		},
		Caps: CapabilityConfig{
			ColorMap:    true,
			Cursor:      true,
			CursorSize:  true,
			CursorImage: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
