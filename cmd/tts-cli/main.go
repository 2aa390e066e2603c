// main package for the tts-cli one-shot converter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-cli/internal/audio"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/edge"
	"github.com/book-expert/tts-cli/internal/pipeline"
)

// Flag names.
const (
	flagText       = "text"
	flagTextFile   = "text-file"
	flagVoice      = "voice"
	flagOutput     = "output"
	flagFormat     = "format"
	flagSampleRate = "sample_rate"
	flagVolume     = "volume"
	flagSpeechRate = "speech_rate"
	flagPitchRate  = "pitch_rate"
	flagTimeout    = "timeout"
	flagListVoices = "list-voices"
)

// Flag descriptions.
const (
	flagTextDesc       = "Text to convert to speech"
	flagTextFileDesc   = "Path to a UTF-8 text file containing the text to convert"
	flagVoiceDesc      = "Provider voice identifier"
	flagOutputDesc     = "Final audio file path (required)"
	flagFormatDesc     = "Output audio format (wav or mp3)"
	flagSampleRateDesc = "Output sample rate in Hz for wav files (e.g. 44100, 22050)"
	flagVolumeDesc     = "Volume percentage, 0-100"
	flagSpeechRateDesc = "Speech rate adjustment in percent (e.g. -10, 20)"
	flagPitchRateDesc  = "Pitch adjustment in Hz (e.g. -5, 3)"
	flagTimeoutDesc    = "Synthesis timeout in seconds"
	flagListVoicesDesc = "List available voices and exit"
)

// Defaults.
const (
	defaultTimeoutSeconds = 60
	logFileName           = "tts-cli.log"
)

// Error messages.
const (
	errFailedToInitLogger  = "Failed to initialize logger: %v"
	errOutputRequired      = "--output is required"
	errFailedToListVoices  = "Failed to list voices: %v"
	errFailedToResolveText = "Failed to resolve text: %v"
	errConversionFailed    = "Conversion failed: %v"
)

const voiceListLineFormat = "%-42s %-8s %s\n"

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text       string
	textFile   string
	voice      string
	output     string
	format     string
	sampleRate int
	volume     int
	speechRate int
	pitchRate  int
	timeout    int
	listVoices bool
}

func main() {
	err := run()
	if err != nil {
		// The file logger already received the diagnostics; the standard
		// log package carries the final word to stderr.
		log.Fatalf("Error: %v", err)
	}
}

// run is the main application entry point, returning an error on failure.
func run() error {
	flags := parseFlags()

	fileLogger, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf(errFailedToInitLogger, err)
	}
	defer fileLogger.Close()

	timeout := time.Duration(flags.timeout) * time.Second
	client := edge.NewClient(timeout)

	if flags.listVoices {
		return handleListVoices(client)
	}

	return handleConversion(client, fileLogger, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags
	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.textFile, flagTextFile, "", flagTextFileDesc)
	flag.StringVar(&flags.voice, flagVoice, edge.DefaultVoice, flagVoiceDesc)
	flag.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flag.StringVar(&flags.format, flagFormat, string(audio.FORMAT_WAV), flagFormatDesc)
	flag.IntVar(&flags.sampleRate, flagSampleRate, audio.DEFAULT_SAMPLE_RATE, flagSampleRateDesc)
	flag.IntVar(&flags.volume, flagVolume, audio.DEFAULT_VOLUME, flagVolumeDesc)
	flag.IntVar(&flags.speechRate, flagSpeechRate, 0, flagSpeechRateDesc)
	flag.IntVar(&flags.pitchRate, flagPitchRate, 0, flagPitchRateDesc)
	flag.IntVar(&flags.timeout, flagTimeout, defaultTimeoutSeconds, flagTimeoutDesc)
	flag.BoolVar(&flags.listVoices, flagListVoices, false, flagListVoicesDesc)
	flag.Parse()

	return flags
}

// handleListVoices prints the provider's voice catalogue.
func handleListVoices(client *edge.Client) error {
	voices, err := client.ListVoices(context.Background())
	if err != nil {
		return fmt.Errorf(errFailedToListVoices, err)
	}

	for _, voice := range voices {
		fmt.Printf(voiceListLineFormat, voice.ShortName, voice.Gender, voice.Locale)
	}

	return nil
}

// handleConversion validates flags and runs the conversion pipeline.
func handleConversion(
	client *edge.Client,
	fileLogger *logger.Logger,
	flags appFlags,
) error {
	if flags.output == "" {
		flag.Usage()

		return errors.New(errOutputRequired)
	}

	text, resolveErr := pipeline.ResolveText(flags.text, flags.textFile)
	if resolveErr != nil {
		fileLogger.Error(errFailedToResolveText, resolveErr)

		return fmt.Errorf(errFailedToResolveText, resolveErr)
	}

	job := core.Job{
		Text:       text,
		Voice:      flags.voice,
		OutputPath: flags.output,
		Format:     audio.Format(flags.format),
		SampleRate: flags.sampleRate,
		Volume:     flags.volume,
		SpeechRate: flags.speechRate,
		PitchRate:  flags.pitchRate,
	}

	engine := pipeline.New(client, fileLogger)

	runErr := engine.Run(context.Background(), job)
	if runErr != nil {
		fileLogger.Error(errConversionFailed, runErr)

		return fmt.Errorf(errConversionFailed, runErr)
	}

	return nil
}
