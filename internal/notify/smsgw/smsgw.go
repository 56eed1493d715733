// Package smsgw sends SMS alerts through an HTTP gateway.
package smsgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 10 * time.Second

// Sender posts SMS messages to a gateway endpoint.
type Sender struct {
	gatewayURL string
	client     *http.Client
}

// New creates a new SMS gateway sender.
func New(gatewayURL string) *Sender {
	return &Sender{
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// SendSMS posts one message to the gateway and returns the provider
// message id.
func (s *Sender) SendSMS(ctx context.Context, number, text string) (string, error) {
	body, err := json.Marshal(sendRequest{To: number, Text: text})
	if err != nil {
		return "", fmt.Errorf("smsgw: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("smsgw: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req) //nolint:gosec // G704: gatewayURL is from trusted config, not user input
	if err != nil {
		return "", fmt.Errorf("smsgw: post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("smsgw: gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("smsgw: decode response: %w", err)
	}
	return sr.MessageID, nil
}
