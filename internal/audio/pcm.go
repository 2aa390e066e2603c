// Package audio provides the PCM buffer model and post-processing
// transformations for synthesized speech: volume-to-decibel mapping, gain
// application, resampling, and channel down-mixing.
package audio

import (
	"errors"
	"fmt"
	"math"
)

// Constants for default audio quality settings.
const (
	DEFAULT_SAMPLE_RATE = 44100 // Standard CD quality sample rate.
	DEFAULT_VOLUME      = 50    // Default volume percentage.
)

// Constants for quality validation limits.
const (
	MAX_SAMPLE_RATE = 192000
	MIN_VOLUME      = 0
	MAX_VOLUME      = 100
)

// Gain mapping constants. The volume percentage is mapped linearly onto
// [MIN_GAIN_DB, 0] with 100% meaning no change. The curve is a compatibility
// contract; downstream callers depend on the exact values.
const (
	MIN_GAIN_DB     = -30.0
	dbPerAmplitude  = 20.0
	percentFullness = 100.0
)

// Sample range limits for signed 16-bit PCM.
const (
	sampleMin = math.MinInt16
	sampleMax = math.MaxInt16
)

// Constants for error messages and formats.
const (
	ERR_FMT_SAMPLE_RATE_RANGE = "%w: sample rate must be between 1 and %d Hz"
	ERR_FMT_VOLUME_RANGE      = "%w: volume must be between %d and %d"
	ERR_FMT_CHANNELS_POSITIVE = "%w: buffer must have at least one channel"
	ERR_FMT_FORMAT_VALUES     = "%w: format must be wav or mp3"
)

// Common errors for the audio package.
var (
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidVolume     = errors.New("invalid volume")
	ErrInvalidBuffer     = errors.New("invalid buffer")
	ErrInvalidFormat     = errors.New("invalid format")
)

// Format represents supported output containers.
type Format string

const (
	FORMAT_WAV Format = "wav"
	FORMAT_MP3 Format = "mp3"
)

// ValidateFormat checks that a format is one of the supported containers.
func ValidateFormat(format Format) error {
	switch format {
	case FORMAT_WAV, FORMAT_MP3:
		return nil
	default:
		return fmt.Errorf(ERR_FMT_FORMAT_VALUES, ErrInvalidFormat)
	}
}

// ValidateSampleRate checks that a sample rate is within reasonable bounds.
func ValidateSampleRate(sampleRate int) error {
	if sampleRate <= 0 || sampleRate > MAX_SAMPLE_RATE {
		return fmt.Errorf(
			ERR_FMT_SAMPLE_RATE_RANGE,
			ErrInvalidSampleRate,
			MAX_SAMPLE_RATE,
		)
	}

	return nil
}

// ValidateVolume checks that a volume percentage is within [MIN_VOLUME, MAX_VOLUME].
func ValidateVolume(volume int) error {
	if volume < MIN_VOLUME || volume > MAX_VOLUME {
		return fmt.Errorf(
			ERR_FMT_VOLUME_RANGE,
			ErrInvalidVolume,
			MIN_VOLUME,
			MAX_VOLUME,
		)
	}

	return nil
}

// Buffer is a decoded, uncompressed audio signal: interleaved signed 16-bit
// samples with a known sample rate and channel count.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}

	return len(b.Samples) / b.Channels
}

// VolumeToDB maps a volume percentage onto a decibel gain. 100 maps to 0 dB
// (no change); every other value interpolates linearly down to MIN_GAIN_DB at 0.
func VolumeToDB(volume int) float64 {
	if volume == MAX_VOLUME {
		return 0
	}

	return MIN_GAIN_DB * (1 - float64(volume)/percentFullness)
}

// ApplyGain scales every sample by the linear amplitude equivalent of the
// given decibel change (10^(dB/20)), clamping to the 16-bit sample range.
// A gain of exactly 0 dB leaves the buffer untouched.
func (b *Buffer) ApplyGain(decibels float64) {
	if decibels == 0 {
		return
	}

	multiplier := math.Pow(10, decibels/dbPerAmplitude)

	for i, sample := range b.Samples {
		scaled := math.Round(float64(sample) * multiplier)

		if scaled > sampleMax {
			scaled = sampleMax
		}

		if scaled < sampleMin {
			scaled = sampleMin
		}

		b.Samples[i] = int16(scaled)
	}
}

// DownmixMono collapses a multi-channel buffer to a single channel by
// averaging each frame's channel samples. Mono buffers pass through unchanged.
func (b *Buffer) DownmixMono() error {
	if b.Channels <= 0 {
		return fmt.Errorf(ERR_FMT_CHANNELS_POSITIVE, ErrInvalidBuffer)
	}

	if b.Channels == 1 {
		return nil
	}

	frames := b.Frames()
	mono := make([]int16, frames)

	for frame := range frames {
		sum := 0
		for channel := range b.Channels {
			sum += int(b.Samples[frame*b.Channels+channel])
		}

		mono[frame] = int16(sum / b.Channels)
	}

	b.Samples = mono
	b.Channels = 1

	return nil
}

// Resample converts the buffer to the target sample rate using linear
// interpolation between neighbouring frames. Duration is preserved.
func (b *Buffer) Resample(targetRate int) error {
	rateErr := ValidateSampleRate(targetRate)
	if rateErr != nil {
		return rateErr
	}

	if b.Channels <= 0 {
		return fmt.Errorf(ERR_FMT_CHANNELS_POSITIVE, ErrInvalidBuffer)
	}

	if targetRate == b.SampleRate {
		return nil
	}

	srcFrames := b.Frames()
	if srcFrames == 0 {
		b.SampleRate = targetRate

		return nil
	}

	dstFrames := int(math.Round(
		float64(srcFrames) * float64(targetRate) / float64(b.SampleRate),
	))
	if dstFrames < 1 {
		dstFrames = 1
	}

	resampled := make([]int16, dstFrames*b.Channels)
	step := float64(b.SampleRate) / float64(targetRate)

	for frame := range dstFrames {
		position := float64(frame) * step

		left := int(position)
		if left > srcFrames-1 {
			left = srcFrames - 1
		}

		right := left + 1
		if right > srcFrames-1 {
			right = srcFrames - 1
		}

		fraction := position - float64(left)

		for channel := range b.Channels {
			low := float64(b.Samples[left*b.Channels+channel])
			high := float64(b.Samples[right*b.Channels+channel])
			value := low + (high-low)*fraction

			resampled[frame*b.Channels+channel] = int16(math.Round(value))
		}
	}

	b.Samples = resampled
	b.SampleRate = targetRate

	return nil
}
