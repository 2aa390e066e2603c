// Wire message construction and parsing for the read-aloud websocket protocol.
//
// The service speaks a framed text/binary protocol: text messages carry
// MIME-style headers separated from an optional body by a blank line, and
// binary messages carry a two-byte big-endian header length, the header text,
// and the audio payload.
package edge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Protocol header names and values.
const (
	headerPath        = "Path"
	headerContentType = "Content-Type"
	headerRequestID   = "X-RequestId"
	headerTimestamp   = "X-Timestamp"

	pathSpeechConfig = "speech.config"
	pathSSML         = "ssml"
	pathAudio        = "audio"
	pathTurnEnd      = "turn.end"

	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeSSML = "application/ssml+xml"
)

// Output format requested from the provider. The synthesized stream is always
// compressed mp3; container conversion happens in post-processing.
const outputFormat = "audio-24khz-48kbitrate-mono-mp3"

// Timestamp format used by the service (a JavaScript Date string).
const timestampFormat = "Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)"

const (
	headerSeparator     = "\r\n"
	headerBodySeparator = "\r\n\r\n"
	headerKeySeparator  = ":"
)

// Binary frame layout.
const binaryHeaderSizeBytes = 2

// Static errors.
var (
	ErrShortBinaryMessage = errors.New("binary message shorter than its header")
)

// speechConfigMessage builds the session configuration message sent once per
// connection, selecting the synthesis output format.
func speechConfigMessage(now time.Time) string {
	body := `{"context":{"synthesis":{"audio":{"metadataoptions":` +
		`{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},` +
		`"outputFormat":"` + outputFormat + `"}}}}`

	return headerTimestamp + headerKeySeparator + now.UTC().Format(timestampFormat) +
		headerSeparator +
		headerContentType + headerKeySeparator + contentTypeJSON +
		headerSeparator +
		headerPath + headerKeySeparator + pathSpeechConfig +
		headerBodySeparator +
		body
}

// ssmlMessage wraps an SSML document in the request envelope.
func ssmlMessage(requestID, ssml string, now time.Time) string {
	return headerRequestID + headerKeySeparator + requestID +
		headerSeparator +
		headerContentType + headerKeySeparator + contentTypeSSML +
		headerSeparator +
		headerTimestamp + headerKeySeparator + now.UTC().Format(timestampFormat) +
		headerSeparator +
		headerPath + headerKeySeparator + pathSSML +
		headerBodySeparator +
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>` +
		ssml +
		`</speak>`
}

// buildSSML renders the voice and prosody elements for a synthesis request.
// Text and voice are XML-escaped; prosody strings are produced by
// FormatRate/FormatPitch and need no escaping.
func buildSSML(text, voice, rate, pitch string) string {
	return fmt.Sprintf(
		`<voice name='%s'><prosody pitch='%s' rate='%s' volume='%s'>%s</prosody></voice>`,
		escapeXML(voice), pitch, rate, neutralVolume, escapeXML(text),
	)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeXML(text string) string {
	return xmlEscaper.Replace(text)
}

// textMessagePath extracts the Path header value from a text protocol message.
// Messages without a Path header return an empty string.
func textMessagePath(message string) string {
	head, _, _ := strings.Cut(message, headerBodySeparator)

	for _, line := range strings.Split(head, headerSeparator) {
		key, value, found := strings.Cut(line, headerKeySeparator)
		if !found {
			continue
		}

		if strings.EqualFold(strings.TrimSpace(key), headerPath) {
			return strings.TrimSpace(value)
		}
	}

	return ""
}

// parseBinaryMessage splits a binary protocol message into its header text and
// payload bytes.
func parseBinaryMessage(data []byte) (string, []byte, error) {
	if len(data) < binaryHeaderSizeBytes {
		return "", nil, ErrShortBinaryMessage
	}

	headerLength := int(data[0])<<8 | int(data[1])
	if binaryHeaderSizeBytes+headerLength > len(data) {
		return "", nil, ErrShortBinaryMessage
	}

	header := string(data[binaryHeaderSizeBytes : binaryHeaderSizeBytes+headerLength])
	payload := data[binaryHeaderSizeBytes+headerLength:]

	return header, payload, nil
}

// isAudioHeader reports whether a binary message header marks an audio frame.
func isAudioHeader(header string) bool {
	return textMessagePath(header) == pathAudio
}
