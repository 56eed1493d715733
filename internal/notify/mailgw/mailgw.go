// Package mailgw sends email alerts through an HTTP gateway.
package mailgw

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

// Sender posts email messages to a gateway endpoint on behalf of the
// configured sender address.
type Sender struct {
	gatewayURL string
	from       string
	client     *http.Client
}

// New creates a new email gateway sender.
func New(gatewayURL, from string) *Sender {
	return &Sender{
		gatewayURL: gatewayURL,
		from:       from,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// SendEmail posts one message to the gateway and returns the provider
// message id.
func (s *Sender) SendEmail(ctx context.Context, address, subject, body string) (string, error) {
	payload, err := json.Marshal(sendRequest{To: address, From: s.from, Subject: subject, Body: body})
	if err != nil {
		return "", fmt.Errorf("mailgw: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("mailgw: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req) //nolint:gosec // G704: gatewayURL is from trusted config, not user input
	if err != nil {
		return "", fmt.Errorf("mailgw: post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("mailgw: gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("mailgw: decode response: %w", err)
	}
	return sr.MessageID, nil
}
