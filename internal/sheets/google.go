package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const sheetsAPIURL = "https://sheets.googleapis.com"

// GoogleClient reads value ranges from the Google Sheets values API.
type GoogleClient struct {
	accessToken string
	apiKey      string
	baseURL     string
	httpClient  *http.Client
}

// GoogleOption configures the client.
type GoogleOption func(*GoogleClient)

// WithAPIKey authenticates with an API key instead of a bearer token.
func WithAPIKey(key string) GoogleOption {
	return func(c *GoogleClient) {
		c.apiKey = key
	}
}

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(baseURL string) GoogleOption {
	return func(c *GoogleClient) {
		c.baseURL = baseURL
	}
}

// NewGoogleClient creates a Sheets client authenticated with an OAuth
// access token. The token may be empty when an API key option is given.
func NewGoogleClient(accessToken string, opts ...GoogleOption) *GoogleClient {
	c := &GoogleClient{
		accessToken: accessToken,
		baseURL:     sheetsAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type valueRangeResponse struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Fetch reads the whole sheet as an unformatted value grid.
func (c *GoogleClient) Fetch(ctx context.Context, ref Ref) ([][]any, error) {
	if ref.SpreadsheetID == "" || ref.SheetName == "" {
		return nil, fmt.Errorf("sheets: google ref requires spreadsheet_id and sheet_name")
	}

	u := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(ref.SpreadsheetID), url.PathEscape(ref.SheetName))
	q := url.Values{"valueRenderOption": {"UNFORMATTED_VALUE"}}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet values: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result valueRangeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("sheets API error: %s (%s)", result.Error.Message, result.Error.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheets API returned status %d", resp.StatusCode)
	}

	return result.Values, nil
}
