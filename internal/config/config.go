// Package config loads the YAML-tagged server configuration, layering
// command-line flag overrides on top of file values and built-in defaults.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every option recognized by the server.
type Config struct {
	RTMPPort         int    `yaml:"rtmp_port"`
	HTTPPort         int    `yaml:"http_port"`
	StreamsDir       string `yaml:"streams_dir"`
	MaxStreams       int    `yaml:"max_streams"`
	SegmentDuration  int    `yaml:"segment_duration"`
	PlaylistSize     int    `yaml:"playlist_size"`
	LogLevel         string `yaml:"log_level"`
	SegmenterPath    string `yaml:"segmenter_path"`
	ThrottleBytesSec int    `yaml:"throttle_bytes_per_sec"`
}

// Defaults mirror the literal values spec.md binds the system to.
func Defaults() Config {
	return Config{
		RTMPPort:        1935,
		HTTPPort:        8080,
		StreamsDir:      "streams",
		MaxStreams:      16,
		SegmentDuration: 6,
		PlaylistSize:    5,
		LogLevel:        "info",
		SegmenterPath:   "ffmpeg",
	}
}

// Load reads a YAML config file at path, starting from Defaults() so any
// field the file omits keeps its default. An empty path returns Defaults().
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configuration combinations that can't produce a working
// server; it does not attempt to validate filesystem permissions.
func (c *Config) Validate() error {
	if c.RTMPPort <= 0 || c.RTMPPort > 65535 {
		return fmt.Errorf("config: rtmp_port %d out of range", c.RTMPPort)
	}
	if c.MaxStreams <= 0 {
		return fmt.Errorf("config: max_streams must be positive, got %d", c.MaxStreams)
	}
	if c.SegmentDuration <= 0 {
		return fmt.Errorf("config: segment_duration must be positive, got %d", c.SegmentDuration)
	}
	if c.PlaylistSize <= 0 {
		return fmt.Errorf("config: playlist_size must be positive, got %d", c.PlaylistSize)
	}
	if c.StreamsDir == "" {
		return fmt.Errorf("config: streams_dir must not be empty")
	}
	return nil
}

// StreamDir returns the per-stream output directory for the given stream key.
func (c *Config) StreamDir(streamKey string) string {
	return c.StreamsDir + "/" + streamKey
}

// PlaylistPath returns the rolling index file path for the given stream key.
func (c *Config) PlaylistPath(streamKey string) string {
	return c.StreamDir(streamKey) + "/playlist.m3u8"
}
