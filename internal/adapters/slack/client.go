// Package slack is a minimal Slack Web API client covering what the
// reminder dispatcher needs: posting channel messages and resolving
// workspace members by email.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const slackAPIURL = "https://slack.com/api"

// Client is a Slack API client
type Client struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
	cache      *emailCache
}

// NewClient creates a new Slack client
func NewClient(botToken string) *Client {
	return NewClientWithBaseURL(botToken, slackAPIURL)
}

// NewClientWithBaseURL creates a new Slack client with a custom base URL (for testing).
func NewClientWithBaseURL(botToken, baseURL string) *Client {
	return &Client{
		botToken: botToken,
		baseURL:  baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: newEmailCache(),
	}
}

// PostMessageResponse represents the response from posting a message
type PostMessageResponse struct {
	OK      bool   `json:"ok"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

// PostMessage posts a plain-text message to a channel
func (c *Client) PostMessage(ctx context.Context, channel, text string) (*PostMessageResponse, error) {
	payload := struct {
		Channel string `json:"channel"`
		Text    string `json:"text"`
	}{
		Channel: channel,
		Text:    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result PostMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.OK {
		return nil, fmt.Errorf("slack API error: %s", result.Error)
	}

	return &result, nil
}

// ErrUserNotFound is returned by LookupUserByEmail when no workspace
// member has the given email.
var ErrUserNotFound = fmt.Errorf("slack: user not found")

// lookupByEmailResponse represents the response from users.lookupByEmail
type lookupByEmailResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	User  struct {
		ID      string `json:"id"`
		Profile struct {
			DisplayName string `json:"display_name"`
			RealName    string `json:"real_name"`
		} `json:"profile"`
	} `json:"user"`
}

// LookupUserByEmail resolves a workspace member ID from an email address,
// with caching. Returns ErrUserNotFound when Slack has no member for the
// email; any other error is a transport or API failure.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	if cached, ok := c.cache.get(email); ok {
		return cached, nil
	}

	u := c.baseURL + "/users.lookupByEmail?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result lookupByEmailResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.OK {
		if result.Error == "users_not_found" {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("slack API error: %s", result.Error)
	}

	c.cache.set(email, result.User.ID)

	return result.User.ID, nil
}
