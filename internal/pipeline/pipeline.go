// Package pipeline orchestrates one-shot text-to-speech conversion: delegate
// synthesis to a provider client, post-process the compressed stream (gain,
// optional resample and mono down-mix), and encode the result to the target
// container.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-cli/internal/audio"
	"github.com/book-expert/tts-cli/internal/core"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Temporary file patterns. The synthesis artifact keeps an .mp3 suffix since
// the provider stream is always compressed mp3.
const (
	synthesisTempPattern = "tts-raw-*.mp3"
	outputTempPattern    = ".tts-out-*"
)

// Step-numbered progress messages. A downstream caller may parse these, so
// their shape is part of the tool's surface.
const (
	msgStepSynthesis  = "Step 1: fetching raw audio stream from the synthesis service (MP3)...\n"
	msgSynthesisSaved = "Raw audio saved to temporary file: %s\n"
	msgStepProcess    = "Step 2: post-processing audio...\n"
	msgVolumeMapping  = "Volume adjustment: %d%% -> %.2f dB\n"
	msgResample       = "Setting sample rate to: %d Hz\n"
	msgStepExport     = "Step 3: exporting final file to: %s\n"
	msgSuccess        = "Success! Final file generated: %s\n"
)

// Log messages.
const (
	logFmtTempRemoveFailed = "Failed to remove temp file '%s': %v"
	logFmtRendered         = "Rendered %s audio: %d bytes"
)

// Engine runs the conversion pipeline. It is safe for sequential reuse; each
// call owns its own temporary files.
type Engine struct {
	synthesizer core.Synthesizer
	log         *logger.Logger
}

// New creates a pipeline engine around a synthesis provider client.
func New(synthesizer core.Synthesizer, log *logger.Logger) *Engine {
	return &Engine{
		synthesizer: synthesizer,
		log:         log,
	}
}

// Run renders the job and writes the encoded audio to job.OutputPath. Parent
// directories are created as needed. The output file is written through a
// temporary name and renamed into place, so a failed run never leaves a
// half-written output file behind.
func (e *Engine) Run(ctx context.Context, job core.Job) error {
	outputPath, pathErr := prepareOutputPath(job.OutputPath)
	if pathErr != nil {
		return pathErr
	}

	audioData, renderErr := e.Render(ctx, job)
	if renderErr != nil {
		return renderErr
	}

	writeErr := e.writeAtomically(outputPath, audioData)
	if writeErr != nil {
		return writeErr
	}

	fmt.Printf(msgSuccess, outputPath)

	return nil
}

// Render runs the full pipeline and returns the encoded audio bytes. The
// temporary synthesis artifact is removed before returning, whether the
// pipeline succeeded or failed.
func (e *Engine) Render(ctx context.Context, job core.Job) ([]byte, error) {
	validationErr := validateJob(job)
	if validationErr != nil {
		return nil, validationErr
	}

	tempPath, tempErr := createTempFile(os.TempDir(), synthesisTempPattern)
	if tempErr != nil {
		return nil, tempErr
	}

	defer e.removeTempFile(tempPath)

	synthesisErr := e.synthesize(ctx, job, tempPath)
	if synthesisErr != nil {
		return nil, synthesisErr
	}

	buffer, processErr := e.postProcess(tempPath, job)
	if processErr != nil {
		return nil, processErr
	}

	return e.encode(buffer, job.Format)
}

func validateJob(job core.Job) error {
	if job.Text == "" {
		return ErrResolvedEmpty
	}

	formatErr := audio.ValidateFormat(job.Format)
	if formatErr != nil {
		return formatErr
	}

	volumeErr := audio.ValidateVolume(job.Volume)
	if volumeErr != nil {
		return volumeErr
	}

	if job.Format == audio.FORMAT_WAV {
		rateErr := audio.ValidateSampleRate(job.SampleRate)
		if rateErr != nil {
			return rateErr
		}
	}

	return nil
}

func (e *Engine) synthesize(ctx context.Context, job core.Job, tempPath string) error {
	fmt.Print(msgStepSynthesis)

	synthesisErr := e.synthesizer.SynthesizeToFile(
		ctx,
		job.Text,
		job.Voice,
		job.SpeechRate,
		job.PitchRate,
		tempPath,
	)
	if synthesisErr != nil {
		return fmt.Errorf("synthesis failed: %w", synthesisErr)
	}

	fmt.Printf(msgSynthesisSaved, tempPath)

	return nil
}

// postProcess decodes the synthesized stream and applies the transformation
// chain: volume gain always, resample and mono down-mix for wav output only.
// Mp3 output keeps the provider's native sample rate and channel count.
func (e *Engine) postProcess(tempPath string, job core.Job) (*audio.Buffer, error) {
	fmt.Print(msgStepProcess)

	buffer, decodeErr := audio.Decode(tempPath)
	if decodeErr != nil {
		return nil, fmt.Errorf("post-processing failed: %w", decodeErr)
	}

	decibels := audio.VolumeToDB(job.Volume)
	fmt.Printf(msgVolumeMapping, job.Volume, decibels)
	buffer.ApplyGain(decibels)

	if job.Format == audio.FORMAT_WAV {
		fmt.Printf(msgResample, job.SampleRate)

		resampleErr := buffer.Resample(job.SampleRate)
		if resampleErr != nil {
			return nil, fmt.Errorf("post-processing failed: %w", resampleErr)
		}

		downmixErr := buffer.DownmixMono()
		if downmixErr != nil {
			return nil, fmt.Errorf("post-processing failed: %w", downmixErr)
		}
	}

	return buffer, nil
}

// encode writes the buffer to a scratch file in the requested container and
// returns its bytes.
func (e *Engine) encode(buffer *audio.Buffer, format audio.Format) ([]byte, error) {
	scratchPath, scratchErr := createTempFile(os.TempDir(), outputTempPattern)
	if scratchErr != nil {
		return nil, scratchErr
	}

	defer e.removeTempFile(scratchPath)

	encodeErr := audio.Encode(buffer, scratchPath, format)
	if encodeErr != nil {
		return nil, fmt.Errorf("export failed: %w", encodeErr)
	}

	audioData, readErr := os.ReadFile(scratchPath)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read encoded audio: %w", readErr)
	}

	e.log.Info(logFmtRendered, format, len(audioData))

	return audioData, nil
}

// writeAtomically persists data next to the final path and renames it into
// place.
func (e *Engine) writeAtomically(outputPath string, data []byte) error {
	outputDir := filepath.Dir(outputPath)

	fmt.Printf(msgStepExport, outputPath)

	stagingPath, stagingErr := createTempFile(outputDir, outputTempPattern)
	if stagingErr != nil {
		return stagingErr
	}

	writeErr := os.WriteFile(stagingPath, data, filePermissions)
	if writeErr != nil {
		e.removeTempFile(stagingPath)

		return fmt.Errorf("failed to write output file: %w", writeErr)
	}

	renameErr := os.Rename(stagingPath, outputPath)
	if renameErr != nil {
		e.removeTempFile(stagingPath)

		return fmt.Errorf("failed to move output into place: %w", renameErr)
	}

	return nil
}

// prepareOutputPath resolves the output path to an absolute path and ensures
// its parent directory exists. Creation is idempotent.
func prepareOutputPath(outputPath string) (string, error) {
	absolutePath, absErr := filepath.Abs(outputPath)
	if absErr != nil {
		return "", fmt.Errorf(
			"could not resolve absolute path for %q: %w",
			outputPath,
			absErr,
		)
	}

	dirErr := os.MkdirAll(filepath.Dir(absolutePath), dirPermissions)
	if dirErr != nil {
		return "", fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	return absolutePath, nil
}

// createTempFile reserves a uniquely named file and returns its path. Only the
// name is needed; the handle is closed immediately.
func createTempFile(dir, pattern string) (string, error) {
	tempFile, tempErr := os.CreateTemp(dir, pattern)
	if tempErr != nil {
		return "", fmt.Errorf("failed to create temp file: %w", tempErr)
	}

	closeErr := tempFile.Close()
	if closeErr != nil {
		return "", fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	return tempFile.Name(), nil
}

func (e *Engine) removeTempFile(path string) {
	removeErr := os.Remove(path)
	if removeErr != nil && !os.IsNotExist(removeErr) {
		e.log.Warn(logFmtTempRemoveFailed, path, removeErr)
	}
}
