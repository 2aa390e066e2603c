// Package audio_test tests the PCM post-processing transformations.
package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-cli/internal/audio"
)

func TestVolumeToDB_FullVolumeIsIdentity(t *testing.T) {
	t.Parallel()

	assert.Zero(t, audio.VolumeToDB(100))
}

func TestVolumeToDB_SilenceFloor(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, -30.0, audio.VolumeToDB(0), 1e-9)
}

func TestVolumeToDB_Midpoint(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, -15.0, audio.VolumeToDB(50), 1e-9)
}

func TestVolumeToDB_AffineInterpolation(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, -7.5, audio.VolumeToDB(75), 1e-9)
	assert.InDelta(t, -22.5, audio.VolumeToDB(25), 1e-9)
}

func TestApplyGain_ZeroDBLeavesSamplesUntouched(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{1000, -1000, 32767, -32768},
		SampleRate: 24000,
		Channels:   1,
	}

	buffer.ApplyGain(0)

	assert.Equal(t, []int16{1000, -1000, 32767, -32768}, buffer.Samples)
}

func TestApplyGain_HalvesAmplitudeAtMinusSixDB(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{10000, -10000, 0},
		SampleRate: 24000,
		Channels:   1,
	}

	// 20*log10(0.5) dB corresponds to an amplitude multiplier of exactly 0.5.
	buffer.ApplyGain(-6.020599913279624)

	assert.Equal(t, []int16{5000, -5000, 0}, buffer.Samples)
}

func TestApplyGain_ClampsToSampleRange(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{30000, -30000},
		SampleRate: 24000,
		Channels:   1,
	}

	buffer.ApplyGain(12)

	assert.Equal(t, []int16{32767, -32768}, buffer.Samples)
}

func TestDownmixMono_AveragesChannels(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{100, 200, -100, -300},
		SampleRate: 24000,
		Channels:   2,
	}

	err := buffer.DownmixMono()
	require.NoError(t, err)

	assert.Equal(t, []int16{150, -200}, buffer.Samples)
	assert.Equal(t, 1, buffer.Channels)
}

func TestDownmixMono_MonoPassesThrough(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{1, 2, 3},
		SampleRate: 24000,
		Channels:   1,
	}

	err := buffer.DownmixMono()
	require.NoError(t, err)

	assert.Equal(t, []int16{1, 2, 3}, buffer.Samples)
	assert.Equal(t, 1, buffer.Channels)
}

func TestDownmixMono_RejectsInvalidChannelCount(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{1, 2},
		SampleRate: 24000,
		Channels:   0,
	}

	err := buffer.DownmixMono()
	require.Error(t, err)
	require.ErrorIs(t, err, audio.ErrInvalidBuffer)
}

func TestResample_Downsamples(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{0, 100, 200, 300},
		SampleRate: 44100,
		Channels:   1,
	}

	err := buffer.Resample(22050)
	require.NoError(t, err)

	assert.Equal(t, 22050, buffer.SampleRate)
	assert.Len(t, buffer.Samples, 2)
}

func TestResample_UpsamplesWithInterpolation(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{0, 100},
		SampleRate: 22050,
		Channels:   1,
	}

	err := buffer.Resample(44100)
	require.NoError(t, err)

	assert.Equal(t, 44100, buffer.SampleRate)
	assert.Equal(t, []int16{0, 50, 100, 100}, buffer.Samples)
}

func TestResample_SameRateIsNoOp(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{7, 8, 9},
		SampleRate: 24000,
		Channels:   1,
	}

	err := buffer.Resample(24000)
	require.NoError(t, err)

	assert.Equal(t, []int16{7, 8, 9}, buffer.Samples)
	assert.Equal(t, 24000, buffer.SampleRate)
}

func TestResample_RejectsInvalidTargetRate(t *testing.T) {
	t.Parallel()

	buffer := &audio.Buffer{
		Samples:    []int16{1},
		SampleRate: 24000,
		Channels:   1,
	}

	err := buffer.Resample(0)
	require.Error(t, err)
	require.ErrorIs(t, err, audio.ErrInvalidSampleRate)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()

	require.NoError(t, audio.ValidateFormat(audio.FORMAT_WAV))
	require.NoError(t, audio.ValidateFormat(audio.FORMAT_MP3))

	err := audio.ValidateFormat(audio.Format("flac"))
	require.Error(t, err)
	require.ErrorIs(t, err, audio.ErrInvalidFormat)
}

func TestValidateVolume(t *testing.T) {
	t.Parallel()

	require.NoError(t, audio.ValidateVolume(0))
	require.NoError(t, audio.ValidateVolume(100))

	require.ErrorIs(t, audio.ValidateVolume(-1), audio.ErrInvalidVolume)
	require.ErrorIs(t, audio.ValidateVolume(101), audio.ErrInvalidVolume)
}

func TestValidateSampleRate(t *testing.T) {
	t.Parallel()

	require.NoError(t, audio.ValidateSampleRate(22050))

	require.ErrorIs(t, audio.ValidateSampleRate(0), audio.ErrInvalidSampleRate)
	require.ErrorIs(t, audio.ValidateSampleRate(200000), audio.ErrInvalidSampleRate)
}
