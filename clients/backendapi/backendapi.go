// Package backendapi is the HTTP gateway to the pin-tracking backend. It
// owns the wire shapes of the backend's REST contract and adapts them into
// the internal data model.
package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"pinwatch/internal/models"
)

// RemoteError is a non-2xx response from the backend.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend status=%d body=%s", e.Status, e.Body)
}

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
		timeout = 30 * time.Second
	}
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// ---- Backend wire types (snake_case; adapted below) ----

type backendHistoryPoint struct {
	TS          string  `json:"ts"`
	ImpliedProb float64 `json:"implied_prob"`
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	MarketTitle *string `json:"market_title"`
}

type backendPinnedMarket struct {
	ID           int                   `json:"id"`
	UserID       int                   `json:"user_id"`
	MarketID     string                `json:"market_id"`
	PinnedAt     string                `json:"pinned_at"`
	LatestProb   *float64              `json:"latest_prob"`
	LatestPrice  *float64              `json:"latest_price"`
	LatestVolume *float64              `json:"latest_volume"`
	MarketTitle  *string               `json:"market_title"`
	History      []backendHistoryPoint `json:"history"`
}

type backendAlert struct {
	ID          int     `json:"id"`
	UserID      int     `json:"user_id"`
	MarketID    string  `json:"market_id"`
	TS          string  `json:"ts"`
	ChangePct   float64 `json:"change_pct"`
	Threshold   float64 `json:"threshold"`
	MarketTitle *string `json:"market_title"`
	InsightText string  `json:"insight_text"`
	Seen        bool    `json:"seen"`
}

type backendMarketDetail struct {
	MarketID   string                `json:"market_id"`
	Latest     backendHistoryPoint   `json:"latest"`
	History    []backendHistoryPoint `json:"history"`
	DataPoints int                   `json:"data_points"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ---- Adapters ----

// parseTS handles backend timestamps with or without a zone suffix.
func parseTS(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func historyToSparkline(history []backendHistoryPoint) []models.SparklinePoint {
	out := make([]models.SparklinePoint, 0, len(history))
	for _, h := range history {
		out = append(out, models.SparklinePoint{Timestamp: parseTS(h.TS), Value: h.ImpliedProb})
	}
	return out
}

// changeFromHistory is the raw probability-point delta over the retained
// window: last minus first.
func changeFromHistory(history []backendHistoryPoint) float64 {
	if len(history) < 2 {
		return 0
	}
	return history[len(history)-1].ImpliedProb - history[0].ImpliedProb
}

func orPlaceholderTitle(title *string, marketID string) string {
	if title != nil && *title != "" {
		return *title
	}
	return "Market " + marketID
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func adaptPinnedMarket(b backendPinnedMarket) models.PinnedMarket {
	return models.PinnedMarket{
		MarketID:           b.MarketID,
		Title:              orPlaceholderTitle(b.MarketTitle, b.MarketID),
		ImpliedProbability: orZero(b.LatestProb),
		ChangePct:          changeFromHistory(b.History),
		Volume24h:          orZero(b.LatestVolume),
		UpdatedAt:          parseTS(b.PinnedAt),
		Sparkline:          historyToSparkline(b.History),
	}
}

func adaptAlert(b backendAlert) models.AlertItem {
	return models.AlertItem{
		ID:          fmt.Sprintf("%d", b.ID),
		MarketID:    b.MarketID,
		MarketTitle: orPlaceholderTitle(b.MarketTitle, b.MarketID),
		ChangePct:   b.ChangePct,
		Threshold:   b.Threshold,
		InsightText: b.InsightText,
		CreatedAt:   parseTS(b.TS),
		Seen:        b.Seen,
	}
}

func adaptMarketSnapshot(b backendMarketDetail) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		MarketID: b.MarketID,
		Title:    orPlaceholderTitle(b.Latest.MarketTitle, b.MarketID),
		Latest: models.LatestPoint{
			ImpliedProbability: b.Latest.ImpliedProb,
			Price:              b.Latest.Price,
			Volume:             b.Latest.Volume,
			UpdatedAt:          parseTS(b.Latest.TS),
		},
		History: historyToSparkline(b.History),
		Alerts:  []models.AlertItem{}, // fetched separately
	}
}

// ---- Operations ----

func (c *Client) GetPinnedMarkets(ctx context.Context, userID string) ([]models.PinnedMarket, error) {
	var resp struct {
		Items []backendPinnedMarket `json:"items"`
	}
	path := "/api/pinned?userId=" + url.QueryEscape(userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	items := make([]models.PinnedMarket, 0, len(resp.Items))
	for _, b := range resp.Items {
		items = append(items, adaptPinnedMarket(b))
	}
	return items, nil
}

func (c *Client) PinMarket(ctx context.Context, userID, marketID string) (*models.PinnedMarket, error) {
	body := map[string]any{"userId": userID, "marketId": marketID}
	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/pin", body, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("pinned market",
		zap.String("marketId", marketID),
		zap.String("status", resp.Status),
	)
	// The server may enrich the entry with fields the client does not
	// know; callers refetch the collection instead of trusting a local
	// construction.
	return nil, nil
}

func (c *Client) UnpinMarket(ctx context.Context, userID, marketID string) error {
	body := map[string]any{"userId": userID, "marketId": marketID}
	var resp statusResponse
	return c.doJSON(ctx, http.MethodDelete, "/api/pin", body, &resp)
}

func (c *Client) GetAlerts(ctx context.Context, userID string) ([]models.AlertItem, error) {
	var resp struct {
		Alerts []backendAlert `json:"alerts"`
	}
	path := "/api/alerts?userId=" + url.QueryEscape(userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	alerts := make([]models.AlertItem, 0, len(resp.Alerts))
	for _, b := range resp.Alerts {
		alerts = append(alerts, adaptAlert(b))
	}
	return alerts, nil
}

func (c *Client) MarkAlertSeen(ctx context.Context, alertID string) error {
	path := fmt.Sprintf("/api/alerts/%s/mark-seen", url.PathEscape(alertID))
	var resp statusResponse
	return c.doJSON(ctx, http.MethodPatch, path, nil, &resp)
}

func (c *Client) GetMarketSnapshot(ctx context.Context, marketID string) (*models.MarketSnapshot, error) {
	var resp backendMarketDetail
	path := fmt.Sprintf("/api/market/%s?hours=24", url.PathEscape(marketID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return adaptMarketSnapshot(resp), nil
}

func (c *Client) GetEventDetail(ctx context.Context, eventID string) (*models.EventDetail, error) {
	var resp models.EventDetail
	path := fmt.Sprintf("/api/event/%s", url.PathEscape(eventID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON performs one request/response round trip. Non-2xx responses
// become a *RemoteError; transport failures come back wrapped.
func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}

	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	}
	return nil
}
