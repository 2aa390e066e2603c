// Voice catalogue access for the read-aloud service.
package edge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error messages.
const (
	errFmtVoicesNonOKStatus = "voices list request returned non-OK status: %s"
)

// ErrNoVoices is returned when the service reports an empty voice catalogue.
var ErrNoVoices = errors.New("voice catalogue is empty")

// Voice describes one entry of the provider's voice catalogue.
type Voice struct {
	Name           string `json:"Name"`
	ShortName      string `json:"ShortName"`
	Gender         string `json:"Gender"`
	Locale         string `json:"Locale"`
	SuggestedCodec string `json:"SuggestedCodec"`
	FriendlyName   string `json:"FriendlyName"`
	Status         string `json:"Status"`
}

// ListVoices fetches the provider's voice catalogue.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	url := c.voicesURL + "?trustedclienttoken=" + trustedClientToken

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", reqErr)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("voices list request failed: %w", doErr)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(errFmtVoicesNonOKStatus, resp.Status)
	}

	var voices []Voice

	decodeErr := json.NewDecoder(resp.Body).Decode(&voices)
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode voices list: %w", decodeErr)
	}

	if len(voices) == 0 {
		return nil, ErrNoVoices
	}

	return voices, nil
}
