// Package directory resolves marketplace slugs to canonical numeric ids
// via the public market-directory service.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound means the slug resolved to nothing. Transport failures
// surface as ErrNotFound too: resolution is best-effort, and the caller's
// recourse either way is to supply a numeric id instead. Never retried
// automatically.
var ErrNotFound = errors.New("no market found for slug")

type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type directoryEntry struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// Resolve looks up a slug on the markets or events search endpoint and
// returns the canonical numeric id of the first match.
func (c *Client) Resolve(ctx context.Context, slug string, isEvent bool) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "", ErrNotFound
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid directory baseURL: %w", err)
	}
	if isEvent {
		u.Path = "/events"
	} else {
		u.Path = "/markets"
	}
	q := u.Query()
	q.Set("slug", slug)
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	entries, err := c.search(ctx, u.String())
	if err != nil {
		// Deliberately collapsed with not-found: the user-facing message
		// is the same either way.
		c.logger.Warn("slug lookup failed",
			zap.String("slug", slug),
			zap.Bool("isEvent", isEvent),
			zap.Error(err),
		)
		return "", ErrNotFound
	}
	if len(entries) == 0 || entries[0].ID == "" {
		return "", ErrNotFound
	}

	c.logger.Debug("resolved slug",
		zap.String("slug", slug),
		zap.String("id", entries[0].ID),
	)
	return entries[0].ID, nil
}

func (c *Client) search(ctx context.Context, url string) ([]directoryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	var entries []directoryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return entries, nil
}
