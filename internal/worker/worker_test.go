// Package worker_test tests the NATS worker for tts-cli.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-cli/internal/audio"
	"github.com/book-expert/tts-cli/internal/core"
	"github.com/book-expert/tts-cli/internal/worker"
)

var (
	errMockDownload = errors.New("mock download error")
	errMockUpload   = errors.New("mock upload error")
	errMockRender   = errors.New("mock render error")
)

// mockObjectStore is a mock implementation of the ObjectStore interface.
type mockObjectStore struct {
	downloadShouldFail bool
	uploadShouldFail   bool
	downloadedKey      string
	uploadedKey        string
	uploadedData       []byte
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	if m.downloadShouldFail {
		return nil, errMockDownload
	}

	m.downloadedKey = key

	return []byte("sample text"), nil
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	if m.uploadShouldFail {
		return errMockUpload
	}

	m.uploadedKey = key
	m.uploadedData = data

	return nil
}

// mockRenderer is a mock implementation of the Renderer interface.
type mockRenderer struct {
	renderShouldFail bool
	renderedJob      core.Job
}

func (m *mockRenderer) Render(_ context.Context, job core.Job) ([]byte, error) {
	if m.renderShouldFail {
		return nil, errMockRender
	}

	m.renderedJob = job

	return []byte("sample audio"), nil
}

func createTestNatsClient(t *testing.T) (*nats.Conn, func()) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	cleanup := func() {
		server.Shutdown()
		natsConnection.Close()
	}

	return natsConnection, cleanup
}

func testDefaults() worker.Defaults {
	return worker.Defaults{
		Voice:      "en-US-SteffanNeural",
		Format:     audio.FORMAT_WAV,
		SampleRate: 44100,
		Volume:     50,
		SpeechRate: 0,
		PitchRate:  0,
		Timeout:    10 * time.Second,
	}
}

func setupTest(t *testing.T) (
	*worker.NatsWorker,
	*mockObjectStore,
	*mockRenderer,
	context.Context,
	context.CancelFunc,
	*nats.Conn,
) {
	t.Helper()

	mockStore := &mockObjectStore{
		downloadShouldFail: false,
		uploadShouldFail:   false,
		downloadedKey:      "",
		uploadedKey:        "",
		uploadedData:       nil,
	}
	renderer := &mockRenderer{
		renderShouldFail: false,
		renderedJob:      core.Job{},
	}

	natsConnection, natsCleanup := createTestNatsClient(t)
	t.Cleanup(natsCleanup)

	testLogger, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	workerInstance, err := worker.NewNatsWorker(
		natsConnection,
		"test_subject",
		mockStore,
		renderer,
		testDefaults(),
		testLogger,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	return workerInstance, mockStore, renderer, ctx, cancel, natsConnection
}

func testEvent(voice string) *events.TextProcessedEvent {
	return &events.TextProcessedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		TextKey:           "test-text-key",
		PNGKey:            "",
		PageNumber:        3,
		TotalPages:        9,
		Voice:             voice,
		Seed:              0,
		NGL:               0,
		TopP:              0,
		RepetitionPenalty: 0,
		Temperature:       0,
	}
}

func TestMessageHandler_Success(t *testing.T) {
	t.Parallel()

	workerInstance, mockStore, renderer, ctx, cancel, natsConnection := setupTest(t)
	defer cancel()

	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	event := testEvent("")
	eventData, err := json.Marshal(event)
	require.NoError(t, err)

	replyMsg, err := natsConnection.Request("test_subject", eventData, 5*time.Second)
	require.NoError(t, err, "Request should succeed and receive a reply")

	var replyEvent events.AudioChunkCreatedEvent

	err = json.Unmarshal(replyMsg.Data, &replyEvent)
	require.NoError(t, err)

	assert.Equal(t, "test-text-key", mockStore.downloadedKey)
	assert.Equal(t, "sample text", renderer.renderedJob.Text)
	assert.Equal(t, "en-US-SteffanNeural", renderer.renderedJob.Voice,
		"empty event voice must fall back to the configured default")
	assert.Equal(t, audio.FORMAT_WAV, renderer.renderedJob.Format)

	assert.NotEmpty(t, mockStore.uploadedKey)
	assert.True(t, strings.HasSuffix(mockStore.uploadedKey, ".wav"),
		"audio key must carry the output container extension")
	assert.Equal(t, []byte("sample audio"), mockStore.uploadedData)

	assert.Equal(t, mockStore.uploadedKey, replyEvent.AudioKey)
	assert.Equal(t, event.Header.WorkflowID, replyEvent.Header.WorkflowID)
	assert.Equal(t, event.PageNumber, replyEvent.PageNumber)
	assert.Equal(t, event.TotalPages, replyEvent.TotalPages)

	cancel()

	shutdownErr := <-errChan
	assert.NoError(t, shutdownErr, "worker.Run should not error on graceful shutdown")
}

func TestMessageHandler_VoiceOverride(t *testing.T) {
	t.Parallel()

	workerInstance, _, renderer, ctx, cancel, natsConnection := setupTest(t)
	defer cancel()

	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	event := testEvent("en-GB-RyanNeural")
	eventData, err := json.Marshal(event)
	require.NoError(t, err)

	_, err = natsConnection.Request("test_subject", eventData, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "en-GB-RyanNeural", renderer.renderedJob.Voice)

	cancel()

	shutdownErr := <-errChan
	assert.NoError(t, shutdownErr)
}

func TestMessageHandler_RenderFailureSendsNoReply(t *testing.T) {
	t.Parallel()

	workerInstance, mockStore, renderer, ctx, cancel, natsConnection := setupTest(t)
	defer cancel()

	renderer.renderShouldFail = true

	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	eventData, err := json.Marshal(testEvent(""))
	require.NoError(t, err)

	_, err = natsConnection.Request("test_subject", eventData, 500*time.Millisecond)
	require.Error(t, err, "failed jobs must not produce a reply event")

	assert.Empty(t, mockStore.uploadedKey)

	cancel()

	shutdownErr := <-errChan
	assert.NoError(t, shutdownErr)
}
