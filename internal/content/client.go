package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
	"github.com/voiceflowcms/nav-gateway/internal/resilience"
)

// Item is one piece of workspace content. Categories line up with room
// ids so counts can be projected onto the room catalog.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client talks to the workspace Content API. Reads are retried on
// transient network failures; the bearer token is attached when present
// and its absence is not an error at this layer.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      *resilience.RetryConfig
	logger     zerolog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithRetry overrides the retry policy used for reads.
func WithRetry(rc *resilience.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = rc }
}

// NewClient creates a Content API client for the given base URL.
func NewClient(baseURL, token string, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      resilience.DefaultRetryConfig(),
		logger:     logger.With().Str("component", "content").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListContent fetches all content items in a workspace.
func (c *Client) ListContent(ctx context.Context, workspaceID string) ([]Item, error) {
	url := fmt.Sprintf("%s/api/workspaces/%s/content", c.baseURL, workspaceID)

	var items []Item
	err := resilience.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("content api returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&items)
	}, c.retry, resilience.IsRetryableNetworkError)

	if err != nil {
		observability.RecordContentRefresh(false)
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	observability.RecordContentRefresh(true)
	return items, nil
}

// PublishContent flips one content item to published.
func (c *Client) PublishContent(ctx context.Context, contentID string) error {
	url := fmt.Sprintf("%s/api/content/%s/publish", c.baseURL, contentID)

	body, err := json.Marshal(map[string]string{"status": "published"})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content api returned status %d", resp.StatusCode)
	}

	c.logger.Info().Str("content_id", contentID).Msg("Content published")
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// CountByCategory buckets content items by category.
func CountByCategory(items []Item) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Category]++
	}
	return counts
}
