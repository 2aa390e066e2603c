// Package core defines the core business logic and interfaces for tts-cli.
package core

import (
	"context"

	"github.com/book-expert/tts-cli/internal/audio"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Job holds the parameters for a single text-to-speech conversion.
// This allows for per-request customization of the audio output.
type Job struct {
	// Text is the content to speak. Must be non-empty.
	Text string

	// Voice is the provider voice identifier (e.g. "en-US-SteffanNeural").
	Voice string

	// OutputPath is the final audio file path. Only used by file-writing
	// entry points; in-memory rendering ignores it.
	OutputPath string

	// Format is the output container, wav or mp3.
	Format audio.Format

	// SampleRate is the resample target in Hz. Applied to wav output only.
	SampleRate int

	// Volume is a percentage in [0, 100], mapped to a decibel gain.
	Volume int

	// SpeechRate is a signed speech-rate delta in percent, passed through
	// to the synthesis provider.
	SpeechRate int

	// PitchRate is a signed pitch delta in Hz, passed through to the
	// synthesis provider.
	PitchRate int
}

// Synthesizer defines the interface for a speech synthesis provider client.
// Implementations persist the provider's compressed audio stream to a file.
type Synthesizer interface {
	SynthesizeToFile(
		ctx context.Context,
		text, voice string,
		speechRate, pitchRate int,
		outputPath string,
	) error
}

// Renderer defines the interface for the full synthesis and post-processing
// pipeline, producing the encoded output audio in memory.
type Renderer interface {
	Render(ctx context.Context, job Job) ([]byte, error)
}
