// Package expo sends push notifications through the Expo push service.
package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://exp.host"

// Client sends push messages to Expo push tokens.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client with sane timeouts.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// pushMessage is the Expo push API request body for a single message.
type pushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
	Badge int    `json:"badge"`
}

// pushReceipt is the per-message status in the Expo push API response.
type pushReceipt struct {
	Data []struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
}

// Send delivers one notification to the given push token. Badge is the
// unread count shown on the app icon.
func (c *Client) Send(ctx context.Context, token, title, body string, badge int) error {
	payload, err := json.Marshal([]pushMessage{{
		To:    token,
		Title: title,
		Body:  body,
		Sound: "default",
		Badge: badge,
	}})
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}

	url := c.baseURL + "/--/api/v2/push/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push request returned status %d", resp.StatusCode)
	}

	var receipt pushReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return fmt.Errorf("failed to decode push response: %w", err)
	}

	for _, ticket := range receipt.Data {
		if ticket.Status == "error" {
			return fmt.Errorf("push rejected: %s", ticket.Message)
		}
	}

	return nil
}
