// Package edge implements a client for the Microsoft Edge read-aloud speech
// synthesis service. Synthesis runs over a websocket session; the voice
// catalogue is served over plain HTTPS.
package edge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Service endpoints and identification.
const (
	synthesisEndpoint = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	voicesEndpoint    = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list"

	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	// The service only accepts connections that look like the Edge
	// read-aloud browser extension.
	requestOrigin = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0"
)

// DefaultVoice is used when no voice identifier is provided.
const DefaultVoice = "en-US-SteffanNeural"

// Retry policy for transient synthesis failures.
const (
	maxSynthesisAttempts = 3
	retryBackoffUnit     = time.Second
)

// DefaultTimeout bounds a single synthesis round-trip when the caller's
// context carries no deadline of its own.
const DefaultTimeout = 60 * time.Second

const outputFilePermissions = 0o600

// Static errors.
var (
	ErrTextEmpty       = errors.New("text cannot be empty")
	ErrNoAudioReceived = errors.New("no audio received from synthesis service")
)

// Client talks to the read-aloud service. The zero value is not usable; use
// NewClient.
type Client struct {
	dialer       *websocket.Dialer
	httpClient   *http.Client
	synthesisURL string
	voicesURL    string
	timeout      time.Duration
}

// NewClient creates a client for the public read-aloud service. The timeout
// bounds connection establishment and each synthesis round-trip; a
// non-positive value selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
		httpClient: &http.Client{
			Timeout: timeout,
		},
		synthesisURL: synthesisEndpoint,
		voicesURL:    voicesEndpoint,
		timeout:      timeout,
	}
}

// NewClientWithEndpoints creates a client pointing at custom service URLs.
// This constructor is primarily for testing against local stand-ins.
func NewClientWithEndpoints(synthesisURL, voicesURL string, timeout time.Duration) *Client {
	client := NewClient(timeout)
	client.synthesisURL = synthesisURL
	client.voicesURL = voicesURL

	return client
}

// Synthesize converts text to a compressed mp3 byte stream using the given
// voice and prosody deltas. Transient failures are retried with a linear
// backoff before the last error is reported.
func (c *Client) Synthesize(
	ctx context.Context,
	text, voice string,
	speechRate, pitchRate int,
) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	if voice == "" {
		voice = DefaultVoice
	}

	rate := FormatRate(speechRate)
	pitch := FormatPitch(pitchRate)

	var lastErr error

	for attempt := range maxSynthesisAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("synthesis cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoffUnit):
			}
		}

		audioData, err := c.synthesizeOnce(ctx, text, voice, rate, pitch)
		if err == nil {
			return audioData, nil
		}

		lastErr = err
	}

	return nil, fmt.Errorf(
		"synthesis failed after %d attempts: %w",
		maxSynthesisAttempts,
		lastErr,
	)
}

// SynthesizeToFile synthesizes text and persists the compressed audio stream
// to outputPath. It implements core.Synthesizer.
func (c *Client) SynthesizeToFile(
	ctx context.Context,
	text, voice string,
	speechRate, pitchRate int,
	outputPath string,
) error {
	audioData, err := c.Synthesize(ctx, text, voice, speechRate, pitchRate)
	if err != nil {
		return err
	}

	writeErr := os.WriteFile(outputPath, audioData, outputFilePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write synthesized audio: %w", writeErr)
	}

	return nil
}

// synthesizeOnce performs a single websocket synthesis round-trip.
func (c *Client) synthesizeOnce(
	ctx context.Context,
	text, voice, rate, pitch string,
) ([]byte, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	conn, dialErr := c.dial(ctx)
	if dialErr != nil {
		return nil, dialErr
	}

	defer func() {
		// The session is single-use; close errors carry no signal.
		_ = conn.Close()
	}()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	sendErr := c.sendRequest(conn, text, voice, rate, pitch)
	if sendErr != nil {
		return nil, sendErr
	}

	return c.collectAudio(conn)
}

// withDeadline applies the client timeout unless the caller already set one.
func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	connectionID := connectionIdentifier()
	url := fmt.Sprintf(
		"%s?TrustedClientToken=%s&ConnectionId=%s",
		c.synthesisURL,
		trustedClientToken,
		connectionID,
	)

	header := http.Header{}
	header.Set("Origin", requestOrigin)
	header.Set("User-Agent", userAgent)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")

	conn, resp, dialErr := c.dialer.DialContext(ctx, url, header)
	if dialErr != nil {
		if resp != nil {
			return nil, fmt.Errorf(
				"failed to connect to synthesis service (status %s): %w",
				resp.Status,
				dialErr,
			)
		}

		return nil, fmt.Errorf("failed to connect to synthesis service: %w", dialErr)
	}

	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return conn, nil
}

func (c *Client) sendRequest(
	conn *websocket.Conn,
	text, voice, rate, pitch string,
) error {
	now := time.Now()

	configErr := conn.WriteMessage(
		websocket.TextMessage,
		[]byte(speechConfigMessage(now)),
	)
	if configErr != nil {
		return fmt.Errorf("failed to send speech config: %w", configErr)
	}

	ssml := buildSSML(text, voice, rate, pitch)

	ssmlErr := conn.WriteMessage(
		websocket.TextMessage,
		[]byte(ssmlMessage(requestIdentifier(), ssml, now)),
	)
	if ssmlErr != nil {
		return fmt.Errorf("failed to send SSML request: %w", ssmlErr)
	}

	return nil
}

// collectAudio reads protocol messages until the turn ends, accumulating the
// payloads of audio frames.
func (c *Client) collectAudio(conn *websocket.Conn) ([]byte, error) {
	var audioData []byte

	for {
		messageType, data, readErr := conn.ReadMessage()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read synthesis response: %w", readErr)
		}

		switch messageType {
		case websocket.BinaryMessage:
			header, payload, parseErr := parseBinaryMessage(data)
			if parseErr != nil {
				return nil, parseErr
			}

			if isAudioHeader(header) && len(payload) > 0 {
				audioData = append(audioData, payload...)
			}
		case websocket.TextMessage:
			if textMessagePath(string(data)) == pathTurnEnd {
				if len(audioData) == 0 {
					return nil, ErrNoAudioReceived
				}

				return audioData, nil
			}
		default:
			// Control frames are handled by the websocket library.
		}
	}
}

// connectionIdentifier returns a fresh connection id in the compact hex form
// the service expects (a UUID without dashes).
func connectionIdentifier() string {
	identifier := uuid.New()

	return fmt.Sprintf("%x", identifier[:])
}

func requestIdentifier() string {
	return connectionIdentifier()
}
