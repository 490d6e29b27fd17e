// Package config loads replay and listener settings from JSON or YAML files
// with environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

// Config is the file schema. Every field is optional; Get* methods supply
// defaults for omitted values.
type Config struct {
	Port        *int     `json:"port,omitempty" yaml:"port,omitempty"`
	FrameMode   *string  `json:"frame_mode,omitempty" yaml:"frame_mode,omitempty"`
	FrameLength *float64 `json:"frame_length,omitempty" yaml:"frame_length,omitempty"`

	// Control flags
	DisableNetwork        *bool `json:"disable_network,omitempty" yaml:"disable_network,omitempty"`
	DisableImageClip      *bool `json:"disable_image_clip,omitempty" yaml:"disable_image_clip,omitempty"`
	DisableDistanceClip   *bool `json:"disable_distance_clip,omitempty" yaml:"disable_distance_clip,omitempty"`
	EnableMultipleReturns *bool `json:"enable_multiple_returns,omitempty" yaml:"enable_multiple_returns,omitempty"`
	HostTimestamps        *bool `json:"host_timestamps,omitempty" yaml:"host_timestamps,omitempty"`

	// Replay
	ReplaySpeed *float64 `json:"replay_speed,omitempty" yaml:"replay_speed,omitempty"`
	ReplayLoop  *bool    `json:"replay_loop,omitempty" yaml:"replay_loop,omitempty"`

	FaultDB       *string `json:"fault_db,omitempty" yaml:"fault_db,omitempty"`
	LogLevel      *string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	StatsInterval *string `json:"stats_interval,omitempty" yaml:"stats_interval,omitempty"` // duration string like "30s"
}

// envOverrides maps environment variables onto Config. Unset variables leave
// the pointer nil.
type envOverrides struct {
	Port        *int     `env:"CEPTON_PORT"`
	FrameMode   *string  `env:"CEPTON_FRAME_MODE"`
	FrameLength *float64 `env:"CEPTON_FRAME_LENGTH"`
	ReplaySpeed *float64 `env:"CEPTON_REPLAY_SPEED"`
	ReplayLoop  *bool    `env:"CEPTON_REPLAY_LOOP"`
	FaultDB     *string  `env:"CEPTON_FAULT_DB"`
	LogLevel    *string  `env:"CEPTON_LOG_LEVEL"`
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Load reads path (.json, .yaml or .yml), applies environment overrides and
// validates the result. An empty path yields defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays CEPTON_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.Port != nil {
		c.Port = ov.Port
	}
	if ov.FrameMode != nil {
		c.FrameMode = ov.FrameMode
	}
	if ov.FrameLength != nil {
		c.FrameLength = ov.FrameLength
	}
	if ov.ReplaySpeed != nil {
		c.ReplaySpeed = ov.ReplaySpeed
	}
	if ov.ReplayLoop != nil {
		c.ReplayLoop = ov.ReplayLoop
	}
	if ov.FaultDB != nil {
		c.FaultDB = ov.FaultDB
	}
	if ov.LogLevel != nil {
		c.LogLevel = ov.LogLevel
	}
	return nil
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.Port != nil && (*c.Port < 1 || *c.Port > math.MaxUint16) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", *c.Port)
	}
	if c.FrameMode != nil {
		if _, err := sdk.ParseFrameMode(*c.FrameMode); err != nil {
			return err
		}
	}
	if c.FrameLength != nil && !(*c.FrameLength > 0) {
		return fmt.Errorf("frame_length must be positive, got %v", *c.FrameLength)
	}
	if c.ReplaySpeed != nil && (!(*c.ReplaySpeed > 0) || math.IsInf(*c.ReplaySpeed, 0)) {
		return fmt.Errorf("replay_speed must be positive, got %v", *c.ReplaySpeed)
	}
	if c.StatsInterval != nil && *c.StatsInterval != "" {
		if _, err := time.ParseDuration(*c.StatsInterval); err != nil {
			return fmt.Errorf("invalid stats_interval '%s': %w", *c.StatsInterval, err)
		}
	}
	return nil
}

// GetPort returns the listen port or sdk.DefaultPort.
func (c *Config) GetPort() uint16 {
	if c.Port == nil {
		return sdk.DefaultPort
	}
	return uint16(*c.Port)
}

// GetFrameOptions returns the frame options, defaulting to streaming.
func (c *Config) GetFrameOptions() sdk.FrameOptions {
	fo := sdk.DefaultFrameOptions()
	if c.FrameMode != nil {
		if m, err := sdk.ParseFrameMode(*c.FrameMode); err == nil {
			fo.Mode = m
		}
	}
	if c.FrameLength != nil {
		fo.Length = *c.FrameLength
	}
	return fo
}

// GetControl assembles the control bitmask from the individual flags.
func (c *Config) GetControl() sdk.Control {
	var ctl sdk.Control
	for _, f := range []struct {
		set  *bool
		flag sdk.Control
	}{
		{c.DisableNetwork, sdk.ControlDisableNetwork},
		{c.DisableImageClip, sdk.ControlDisableImageClip},
		{c.DisableDistanceClip, sdk.ControlDisableDistanceClip},
		{c.EnableMultipleReturns, sdk.ControlEnableMultipleReturns},
		{c.HostTimestamps, sdk.ControlHostTimestamps},
	} {
		if f.set != nil && *f.set {
			ctl |= f.flag
		}
	}
	return ctl
}

// GetReplaySpeed returns the replay speed multiplier or 1.
func (c *Config) GetReplaySpeed() float64 {
	if c.ReplaySpeed == nil {
		return 1
	}
	return *c.ReplaySpeed
}

// GetReplayLoop returns whether replay loops, default false.
func (c *Config) GetReplayLoop() bool {
	return c.ReplayLoop != nil && *c.ReplayLoop
}

// GetFaultDB returns the fault journal path, or "" when journaling is off.
func (c *Config) GetFaultDB() string {
	if c.FaultDB == nil {
		return ""
	}
	return *c.FaultDB
}

// GetLogLevel returns the log level, default "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return "info"
	}
	return *c.LogLevel
}

// GetStatsInterval returns how often the live listener logs statistics.
func (c *Config) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil || *c.StatsInterval == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// ToOptions converts the configuration into session options.
func (c *Config) ToOptions() sdk.Options {
	return sdk.Options{
		Control: c.GetControl(),
		Port:    c.GetPort(),
		Frame:   c.GetFrameOptions(),
	}
}
