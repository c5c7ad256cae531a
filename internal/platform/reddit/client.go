// Package reddit provides a minimal client for the Reddit private message
// inbox, authenticated with a stored session cookie.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Inbox item kinds.
const (
	KindCommentReply = "comment_reply"
	KindMessage      = "message"
)

// InboxItem is one entry of an account's inbox feed, newest first.
type InboxItem struct {
	ID        string
	Kind      string
	Author    string
	Subject   string // messages only
	PostTitle string // comment replies only
	Subreddit string // comment replies only
	Text      string
	Unread    bool
}

// Client fetches inbox feeds over the public JSON endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limit      int
}

// NewClient creates a Client with sane timeouts.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://www.reddit.com",
		limit:      10,
	}
}

// listing mirrors the subset of the inbox JSON the client consumes.
type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID        string `json:"id"`
				Author    string `json:"author"`
				Subject   string `json:"subject"`
				LinkTitle string `json:"link_title"`
				Subreddit string `json:"subreddit"`
				Body      string `json:"body"`
				New       bool   `json:"new"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchInbox returns the account's inbox feed, newest first. The session
// value is the raw cookie recorded at account registration. Items of kinds
// the app does not notify about are dropped.
func (c *Client) FetchInbox(ctx context.Context, session string) ([]InboxItem, error) {
	url := fmt.Sprintf("%s/message/inbox.json?limit=%d", c.baseURL, c.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build inbox request: %w", err)
	}
	req.Header.Set("Cookie", session)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inbox request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inbox request returned status %d", resp.StatusCode)
	}

	var feed listing
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode inbox response: %w", err)
	}

	var items []InboxItem
	for _, child := range feed.Data.Children {
		switch child.Kind {
		case "t1":
			items = append(items, InboxItem{
				ID:        child.Data.ID,
				Kind:      KindCommentReply,
				Author:    child.Data.Author,
				PostTitle: child.Data.LinkTitle,
				Subreddit: child.Data.Subreddit,
				Text:      child.Data.Body,
				Unread:    child.Data.New,
			})
		case "t4":
			items = append(items, InboxItem{
				ID:      child.Data.ID,
				Kind:    KindMessage,
				Author:  child.Data.Author,
				Subject: child.Data.Subject,
				Text:    child.Data.Body,
				Unread:  child.Data.New,
			})
		}
	}

	return items, nil
}
