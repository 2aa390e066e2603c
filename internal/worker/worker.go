// Package worker provides a NATS worker that processes TTS jobs with the
// synthesis and post-processing pipeline.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/tts-cli/internal/audio"
	"github.com/book-expert/tts-cli/internal/core"
)

// Defaults holds the job settings applied to every event; the event may only
// override the voice.
type Defaults struct {
	Voice      string
	Format     audio.Format
	SampleRate int
	Volume     int
	SpeechRate int
	PitchRate  int
	Timeout    time.Duration
}

const defaultHandleTimeout = 90 * time.Second

var (
	// ErrTextKeyEmpty indicates an event without a text object key.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	// ErrVoiceEmpty indicates that no voice is configured or provided.
	ErrVoiceEmpty = errors.New("voice cannot be empty")
)

// NatsWorker listens for TTS jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	renderer       core.Renderer
	defaults       Defaults
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	renderer core.Renderer,
	defaults Defaults,
	log *logger.Logger,
) (*NatsWorker, error) {
	if defaults.Timeout <= 0 {
		defaults.Timeout = defaultHandleTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		renderer:       renderer,
		defaults:       defaults,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.defaults.Timeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	audioKey, processErr := w.processJob(ctx, event)
	if processErr != nil {
		w.log.Error(
			"Failed to process TTS job for event %s: %v",
			event.Header.WorkflowID,
			processErr,
		)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error(
			"Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID,
			err,
		)
	}
}

// processJob downloads the text, renders speech through the pipeline, and
// uploads the audio artifact.
func (w *NatsWorker) processJob(
	ctx context.Context,
	event *events.TextProcessedEvent,
) (string, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf(
			"failed to download text data for key '%s': %w",
			event.TextKey,
			err,
		)
	}

	job := w.buildJob(string(textData), event.Voice)

	audioData, renderErr := w.renderer.Render(ctx, job)
	if renderErr != nil {
		return "", fmt.Errorf("failed to render speech: %w", renderErr)
	}

	audioKey := uuid.NewString() + "." + string(job.Format)

	err = w.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf(
			"failed to upload audio data for key '%s': %w",
			audioKey,
			err,
		)
	}

	return audioKey, nil
}

// buildJob combines the worker defaults with the per-event voice override.
func (w *NatsWorker) buildJob(text, voice string) core.Job {
	if voice == "" {
		voice = w.defaults.Voice
	}

	return core.Job{
		Text:       text,
		Voice:      voice,
		OutputPath: "",
		Format:     w.defaults.Format,
		SampleRate: w.defaults.SampleRate,
		Volume:     w.defaults.Volume,
		SpeechRate: w.defaults.SpeechRate,
		PitchRate:  w.defaults.PitchRate,
	}
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func (w *NatsWorker) publishReplyEvent(
	msg *nats.Msg,
	replyEvent *events.AudioChunkCreatedEvent,
) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	if event.Voice == "" && w.defaults.Voice == "" {
		return nil, ErrVoiceEmpty
	}

	return &event, nil
}
