// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk configuration tree, loaded from YAML. It
// mirrors Config's concerns but in a nested, serializable shape; Merge
// applies it onto a flag-oriented Config. The CLI does not load one.
type FileConfig struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Command   string          `yaml:"command,omitempty"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings related to audio device selection and the
// PortAudio stream shape.
type AudioConfig struct {
	OutputDevice    int     `yaml:"output_device"`
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	LowLatency      bool    `yaml:"low_latency"`
	OutputChannels  int     `yaml:"output_channels"`
	FFTSize         int     `yaml:"fft_size"`
}

// RecordingConfig holds settings related to WAV recording of the
// rendered output.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// TransportConfig holds settings for the telemetry side-channel.
type TransportConfig struct {
	Enabled         bool          `yaml:"enabled"`
	WSAddr          string        `yaml:"ws_addr"`
	UDPAddr         string        `yaml:"udp_addr"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// defaultFileConfig returns the baseline a loaded file is merged onto
// before its own values overwrite these.
func defaultFileConfig() FileConfig {
	return FileConfig{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			OutputDevice:    MinDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			OutputChannels:  DefaultChannels,
			FFTSize:         1024,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: "./recordings",
		},
		Transport: TransportConfig{
			Enabled:         false,
			WSAddr:          ":8080",
			UDPAddr:         "127.0.0.1:9090",
			PublishInterval: 33 * time.Millisecond,
		},
	}
}

// LoadFileConfig loads configuration from a YAML file at path. If path is
// empty it searches default locations ("config.yaml"); if none is found
// it returns the built-in defaults. Environment variable overrides are
// applied after the file is parsed, and the result is validated.
func LoadFileConfig(path string) (*FileConfig, error) {
	cfg := defaultFileConfig()

	if path == "" {
		candidates := []string{"config.yaml"}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the subset of fields that aren't already re-checked by
// Config.Validate once merged.
func (c *FileConfig) Validate() error {
	if c.Transport.Enabled {
		if c.Transport.PublishInterval <= 0 {
			return fmt.Errorf("transport.publish_interval must be positive when transport is enabled")
		}
	}
	return nil
}

func (cfg *FileConfig) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_TRANSPORT_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.Enabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_TRANSPORT_UDP_ADDR"); ok {
		cfg.Transport.UDPAddr = val
	}
	if val, ok := os.LookupEnv("ENV_TRANSPORT_WS_ADDR"); ok {
		cfg.Transport.WSAddr = val
	}
	if val, ok := os.LookupEnv("ENV_TRANSPORT_PUBLISH_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.PublishInterval = dur
		}
	}
}
