// Package config provides the configuration structure for the speech-service.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                    string `toml:"url"`
	TranscribeSubject      string `toml:"transcribe_subject"`
	SynthesizeSubject      string `toml:"synthesize_subject"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
}

// SpeechConfig holds the specific configuration for the speech engines.
type SpeechConfig struct {
	// AssetsDir is the root under which all provisioned artifacts live:
	// the language runtime, voice models, voice configs, the recognition
	// model and the request scratch directory.
	AssetsDir      string  `toml:"assets_dir"`
	SampleRate     float64 `toml:"sample_rate"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS   NATSConfig   `toml:"nats"`
	Speech SpeechConfig `toml:"speech"`
	Paths  PathsConfig  `toml:"paths"`
}

// Load loads the configuration for the speech-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}

// RuntimeDir returns the fixed directory of the language runtime installation.
func (c *SpeechConfig) RuntimeDir() string {
	return filepath.Join(c.AssetsDir, "runtime")
}

// VoiceModelsDir returns the fixed directory holding per-voice model assets.
func (c *SpeechConfig) VoiceModelsDir() string {
	return filepath.Join(c.AssetsDir, "piper", "models")
}

// VoiceConfigsDir returns the fixed directory holding persisted voice configs.
func (c *SpeechConfig) VoiceConfigsDir() string {
	return filepath.Join(c.AssetsDir, "tts_configs")
}

// RecognitionModelBaseDir returns the fixed base directory the recognition
// model archive is extracted into.
func (c *SpeechConfig) RecognitionModelBaseDir() string {
	return filepath.Join(c.AssetsDir, "model")
}

// UploadsDir returns the scratch directory for inbound and outbound audio.
func (c *SpeechConfig) UploadsDir() string {
	return filepath.Join(c.AssetsDir, "uploads")
}
