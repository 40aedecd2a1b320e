// Package models holds the shared data model for pinned markets, alerts,
// and market snapshots as served to the dashboard and popup.
package models

import "time"

// SparklinePoint is one point of implied-probability history.
// Value is implied probability in percent, 0-100.
type SparklinePoint struct {
	Timestamp time.Time `json:"ts"`
	Value     float64   `json:"value"`
}

// LatestPoint is the most recent observation for a market.
type LatestPoint struct {
	ImpliedProbability float64   `json:"impliedProbability"`
	Price              float64   `json:"price"`
	Volume             float64   `json:"volume"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// MarketSnapshot is the full view of a single market: latest observation,
// retained history (chronological, oldest first), and its alerts.
type MarketSnapshot struct {
	MarketID       string           `json:"marketId"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	ResolutionDate string           `json:"resolutionDate,omitempty"`
	Latest         LatestPoint      `json:"latest"`
	History        []SparklinePoint `json:"history"`
	Alerts         []AlertItem      `json:"alerts"`
}

// PinnedMarket is one row of the pinned collection. ChangePct is the raw
// probability-point delta (last minus first) over the retained history
// window, not a percentage of a percentage.
type PinnedMarket struct {
	MarketID           string           `json:"marketId"`
	Title              string           `json:"title"`
	Category           string           `json:"category,omitempty"`
	ImpliedProbability float64          `json:"impliedProbability"`
	ChangePct          float64          `json:"changePct"`
	Volume24h          float64          `json:"volume24h,omitempty"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	Sparkline          []SparklinePoint `json:"sparkline"`
	UnreadAlerts       int              `json:"unreadAlerts,omitempty"`
	IsEvent            bool             `json:"isEvent,omitempty"`
	EventID            string           `json:"eventId,omitempty"`
}

// AlertItem is a computed move alert. Immutable except Seen, which only
// ever flips false -> true.
type AlertItem struct {
	ID               string    `json:"id"`
	MarketID         string    `json:"marketId"`
	MarketTitle      string    `json:"marketTitle"`
	ChangePct        float64   `json:"changePct"`
	Threshold        float64   `json:"threshold"`
	InsightText      string    `json:"insightText"`
	CreatedAt        time.Time `json:"createdAt"`
	Seen             bool      `json:"seen"`
	TimeToResolution string    `json:"timeToResolution,omitempty"`
	VolumeDelta      float64   `json:"volumeDelta,omitempty"`
}

// EventMarket is one independently pinnable outcome inside an event.
type EventMarket struct {
	ID             string `json:"id"`
	Question       string `json:"question"`
	OutcomePrices  string `json:"outcome_prices"`
	Active         bool   `json:"active"`
	Closed         bool   `json:"closed"`
	GroupItemTitle string `json:"group_item_title"`
}

// EventDetail is a multi-outcome container. The backend shape passes
// through unchanged.
type EventDetail struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	EndDate     string        `json:"end_date,omitempty"`
	Active      bool          `json:"active"`
	Closed      bool          `json:"closed"`
	Volume24h   float64       `json:"volume_24hr"`
	Markets     []EventMarket `json:"markets"`
	MarketCount int           `json:"market_count"`
}

// ClonePinned returns an independent copy of a pinned-market slice,
// including sparkline backing arrays.
func ClonePinned(in []PinnedMarket) []PinnedMarket {
	if in == nil {
		return nil
	}
	out := make([]PinnedMarket, len(in))
	copy(out, in)
	for i := range out {
		out[i].Sparkline = append([]SparklinePoint(nil), in[i].Sparkline...)
	}
	return out
}

// CloneAlerts returns an independent copy of an alert slice.
func CloneAlerts(in []AlertItem) []AlertItem {
	if in == nil {
		return nil
	}
	return append([]AlertItem(nil), in...)
}

// CloneSnapshot returns an independent copy of a snapshot.
func CloneSnapshot(in *MarketSnapshot) *MarketSnapshot {
	if in == nil {
		return nil
	}
	out := *in
	out.History = append([]SparklinePoint(nil), in.History...)
	out.Alerts = CloneAlerts(in.Alerts)
	return &out
}
