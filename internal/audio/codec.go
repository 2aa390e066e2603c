// Codec boundary for the audio package. Decoding, stream probing, and
// encoding are delegated to ffmpeg; this file only moves PCM bytes across
// that boundary.
package audio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ffmpeg demuxer/muxer and codec identifiers.
const (
	rawFormat      = "s16le"
	rawCodec       = "pcm_s16le"
	pipeSpec       = "pipe:"
	audioCodecType = "audio"
)

const bytesPerSample = 2

// Static errors.
var (
	ErrNoAudioStream = errors.New("no audio stream found")
	ErrEmptyDecode   = errors.New("decoded audio stream is empty")
)

// probeStream mirrors the subset of ffprobe stream metadata this package needs.
type probeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
}

// Decode reads a compressed audio file and returns its PCM content with the
// native sample rate and channel layout preserved.
func Decode(path string) (*Buffer, error) {
	sampleRate, channels, probeErr := probeAudio(path)
	if probeErr != nil {
		return nil, probeErr
	}

	raw := &bytes.Buffer{}

	decodeErr := ffmpeg.Input(path).
		Output(pipeSpec, ffmpeg.KwArgs{
			"format": rawFormat,
			"acodec": rawCodec,
		}).
		WithOutput(raw).
		Run()
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, decodeErr)
	}

	if raw.Len() == 0 {
		return nil, ErrEmptyDecode
	}

	return &Buffer{
		Samples:    bytesToSamples(raw.Bytes()),
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// Encode writes the buffer to path in the given container. Any existing file
// at path is overwritten. The path's extension is irrelevant; the container
// is forced explicitly so callers may encode into temporary file names.
func Encode(buffer *Buffer, path string, format Format) error {
	formatErr := ValidateFormat(format)
	if formatErr != nil {
		return formatErr
	}

	input := bytes.NewReader(samplesToBytes(buffer.Samples))

	encodeErr := ffmpeg.Input(pipeSpec, ffmpeg.KwArgs{
		"format": rawFormat,
		"ar":     strconv.Itoa(buffer.SampleRate),
		"ac":     strconv.Itoa(buffer.Channels),
	}).
		Output(path, ffmpeg.KwArgs{"format": string(format)}).
		OverWriteOutput().
		WithInput(input).
		Run()
	if encodeErr != nil {
		return fmt.Errorf("failed to encode %s audio to %s: %w",
			format, path, encodeErr)
	}

	return nil
}

// probeAudio returns the sample rate and channel count of the first audio
// stream in the file.
func probeAudio(path string) (int, int, error) {
	info, probeErr := ffmpeg.Probe(path)
	if probeErr != nil {
		return 0, 0, fmt.Errorf("failed to probe %s: %w", path, probeErr)
	}

	var result probeResult

	parseErr := json.Unmarshal([]byte(info), &result)
	if parseErr != nil {
		return 0, 0, fmt.Errorf("failed to parse probe output: %w", parseErr)
	}

	for _, stream := range result.Streams {
		if stream.CodecType != audioCodecType {
			continue
		}

		sampleRate, rateErr := strconv.Atoi(stream.SampleRate)
		if rateErr != nil {
			return 0, 0, fmt.Errorf(
				"failed to parse sample rate %q: %w",
				stream.SampleRate,
				rateErr,
			)
		}

		rangeErr := ValidateSampleRate(sampleRate)
		if rangeErr != nil {
			return 0, 0, rangeErr
		}

		if stream.Channels <= 0 {
			return 0, 0, fmt.Errorf(
				ERR_FMT_CHANNELS_POSITIVE, ErrInvalidBuffer)
		}

		return sampleRate, stream.Channels, nil
	}

	return 0, 0, fmt.Errorf("%w in %s", ErrNoAudioStream, path)
}

// bytesToSamples reinterprets little-endian s16le bytes as samples. A trailing
// odd byte, which a truncated stream could produce, is dropped.
func bytesToSamples(data []byte) []int16 {
	count := len(data) / bytesPerSample
	samples := make([]int16, count)

	for i := range count {
		low := uint16(data[i*bytesPerSample])
		high := uint16(data[i*bytesPerSample+1])
		samples[i] = int16(low | high<<8)
	}

	return samples
}

// samplesToBytes serializes samples as little-endian s16le bytes.
func samplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*bytesPerSample)

	for i, sample := range samples {
		value := uint16(sample)
		data[i*bytesPerSample] = byte(value)
		data[i*bytesPerSample+1] = byte(value >> 8)
	}

	return data
}
