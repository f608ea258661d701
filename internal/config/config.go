// Package config loads the service configuration file. Fields are pointers so
// a partial JSON file overrides only what it names; everything else keeps its
// default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the on-disk configuration schema.
type Config struct {
	// Listen is the HTTP listen address.
	Listen *string `json:"listen,omitempty"`

	// DBPath is the sqlite measurement-history file.
	DBPath *string `json:"db_path,omitempty"`

	// SerialPort is the trigger device path; empty means auto-discover.
	SerialPort *string `json:"serial_port,omitempty"`

	// BaudRate overrides the default trigger baud rate.
	BaudRate *int `json:"baud_rate,omitempty"`

	// StabilizationMs overrides the post-connect stabilization delay.
	StabilizationMs *int `json:"stabilization_ms,omitempty"`

	// HandshakeTimeoutMs overrides the overall DONE deadline.
	HandshakeTimeoutMs *int `json:"handshake_timeout_ms,omitempty"`

	// CaptureWAV is a WAV fixture replayed instead of live capture (dev).
	CaptureWAV *string `json:"capture_wav,omitempty"`
}

// Settings is the effective configuration after defaults are applied.
type Settings struct {
	Listen           string
	DBPath           string
	SerialPort       string
	BaudRate         int
	Stabilization    time.Duration
	HandshakeTimeout time.Duration
	CaptureWAV       string
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		Listen:           ":8080",
		DBPath:           "tapsense.db",
		SerialPort:       "",
		BaudRate:         115200,
		Stabilization:    2000 * time.Millisecond,
		HandshakeTimeout: 5000 * time.Millisecond,
		CaptureWAV:       "",
	}
}

// Load reads a config file and merges it over the defaults. The file must
// have a .json extension and stay under 1MB.
func Load(path string) (Settings, error) {
	settings := DefaultSettings()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return settings, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return settings, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return settings, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return settings, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return settings, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyTo(&settings)
	if err := settings.validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

func (c *Config) applyTo(s *Settings) {
	if c.Listen != nil {
		s.Listen = *c.Listen
	}
	if c.DBPath != nil {
		s.DBPath = *c.DBPath
	}
	if c.SerialPort != nil {
		s.SerialPort = *c.SerialPort
	}
	if c.BaudRate != nil {
		s.BaudRate = *c.BaudRate
	}
	if c.StabilizationMs != nil {
		s.Stabilization = time.Duration(*c.StabilizationMs) * time.Millisecond
	}
	if c.HandshakeTimeoutMs != nil {
		s.HandshakeTimeout = time.Duration(*c.HandshakeTimeoutMs) * time.Millisecond
	}
	if c.CaptureWAV != nil {
		s.CaptureWAV = *c.CaptureWAV
	}
}

func (s Settings) validate() error {
	if s.BaudRate <= 0 {
		return fmt.Errorf("invalid baud_rate %d", s.BaudRate)
	}
	if s.Stabilization < 0 {
		return fmt.Errorf("invalid stabilization_ms %d", s.Stabilization/time.Millisecond)
	}
	if s.HandshakeTimeout <= 0 {
		return fmt.Errorf("invalid handshake_timeout_ms %d", s.HandshakeTimeout/time.Millisecond)
	}
	return nil
}
