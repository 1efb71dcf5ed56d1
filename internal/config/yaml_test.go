// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadFileConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadFileConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoadFileConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadFileConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadFileConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadFileConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadFileConfig_ParsesAudioSettings(t *testing.T) {
	path := writeTempConfig(t, "audio:\n  sample_rate: 96000\n  output_channels: 4\n")
	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if cfg.Audio.SampleRate != 96000 {
		t.Errorf("Audio.SampleRate = %v, want 96000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.OutputChannels != 4 {
		t.Errorf("Audio.OutputChannels = %v, want 4", cfg.Audio.OutputChannels)
	}
}

func TestConfigMergeAppliesFileConfigOverDefaults(t *testing.T) {
	c := NewConfig()
	f := &FileConfig{
		Audio: AudioConfig{
			SampleRate:      96000,
			FramesPerBuffer: 256,
			OutputChannels:  1,
			FFTSize:         2048,
		},
		Recording: RecordingConfig{Enabled: true},
		Transport: TransportConfig{Enabled: true, WSAddr: ":9000"},
	}
	c.Merge(f)

	if c.SampleRate != 96000 {
		t.Errorf("SampleRate = %v, want 96000", c.SampleRate)
	}
	if c.Channels != 1 {
		t.Errorf("Channels = %v, want 1", c.Channels)
	}
	if !c.RecordOnStart {
		t.Error("RecordOnStart must be true after merging an enabled RecordingConfig")
	}
	if !c.TelemetryEnabled || c.TelemetryWSAddr != ":9000" {
		t.Errorf("telemetry fields not merged correctly: enabled=%v addr=%v", c.TelemetryEnabled, c.TelemetryWSAddr)
	}
}

func TestConfigValidateRejectsOutOfRangeSampleRate(t *testing.T) {
	c := NewConfig()
	c.SampleRate = 1
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() must reject a sample rate below MinSampleRate")
	}
}

func TestConfigValidateRejectsZeroChannels(t *testing.T) {
	c := NewConfig()
	c.Channels = 0
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() must reject zero channels")
	}
}
