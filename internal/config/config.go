// Package config provides the configuration structure for the tts-cli worker
// service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/book-expert/tts-cli/internal/audio"
	"github.com/book-expert/tts-cli/internal/edge"
)

// Default speech settings applied when the configuration leaves them unset.
const (
	defaultTimeoutSeconds = 60
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// SpeechConfig holds the synthesis and post-processing defaults applied to
// jobs that do not carry their own settings. Volume is a pointer because zero
// is a valid setting; only an absent key falls back to the default.
type SpeechConfig struct {
	Voice          string `toml:"voice"`
	Format         string `toml:"format"`
	SampleRate     int    `toml:"sample_rate"`
	Volume         *int   `toml:"volume"`
	SpeechRate     int    `toml:"speech_rate"`
	PitchRate      int    `toml:"pitch_rate"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
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

// Load loads the configuration for the worker service and fills in defaults
// for unset speech settings.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.Speech.applyDefaults()

	return &cfg, nil
}

func (s *SpeechConfig) applyDefaults() {
	if s.Voice == "" {
		s.Voice = edge.DefaultVoice
	}

	if s.Format == "" {
		s.Format = string(audio.FORMAT_WAV)
	}

	if s.SampleRate == 0 {
		s.SampleRate = audio.DEFAULT_SAMPLE_RATE
	}

	if s.Volume == nil {
		volume := audio.DEFAULT_VOLUME
		s.Volume = &volume
	}

	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = defaultTimeoutSeconds
	}
}
