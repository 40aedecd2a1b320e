// Package syntheticstore is the offline stand-in for the backend: a
// deterministic in-memory generator of pinned markets, alerts, and
// snapshots with the same operation set as the live gateway. Its state
// lives for the process and resets only on restart.
package syntheticstore

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pinwatch/clients/marketdata"
	"pinwatch/internal/models"
)

const (
	// Synthesized histories always carry this many points.
	syntheticHistoryLen = 12
	// Synthesized probabilities stay inside [minProb, maxProb].
	minProb = 10.0
	maxProb = 90.0
	// Moves at or beyond this many probability points get a synthetic
	// alert, mirroring the server-side alert worker.
	alertThreshold = 5.0
)

type Store struct {
	logger *zap.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	snapshots map[string]*models.MarketSnapshot
	pinned    []models.PinnedMarket
	alerts    []models.AlertItem
}

// NewStore builds a store pre-seeded with a fixed set of markets and
// alerts. The same seed reproduces the same synthesized data.
func NewStore(logger *zap.Logger, seed int64) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		logger:    logger,
		rng:       rand.New(rand.NewSource(seed)),
		snapshots: make(map[string]*models.MarketSnapshot),
	}
	s.seed()
	return s
}

var _ marketdata.Service = (*Store)(nil)

func hoursAgo(h float64) time.Time {
	return time.Now().Add(-time.Duration(h * float64(time.Hour))).UTC()
}

// buildHistory spaces values two hours apart, oldest first.
func buildHistory(values []float64) []models.SparklinePoint {
	points := make([]models.SparklinePoint, 0, len(values))
	for i, v := range values {
		points = append(points, models.SparklinePoint{
			Timestamp: hoursAgo(float64(len(values)-i) * 2),
			Value:     v,
		})
	}
	return points
}

func snapshotFromHistory(marketID, title, description, resolutionDate string, values []float64, volume float64) *models.MarketSnapshot {
	history := buildHistory(values)
	last := history[len(history)-1]
	return &models.MarketSnapshot{
		MarketID:       marketID,
		Title:          title,
		Description:    description,
		ResolutionDate: resolutionDate,
		Latest: models.LatestPoint{
			ImpliedProbability: last.Value,
			Price:              math.Round(last.Value) / 100,
			Volume:             volume,
			UpdatedAt:          last.Timestamp,
		},
		History: history,
		Alerts:  []models.AlertItem{},
	}
}

func (s *Store) seed() {
	fixtures := []*models.MarketSnapshot{
		snapshotFromHistory(
			"trump-2024",
			"Will Donald Trump win the 2024 U.S. presidential election?",
			"Tracking the implied probability that Donald Trump will win the 2024 election.",
			"2024-11-06T00:00:00Z",
			[]float64{58.1, 59.3, 57.6, 60.4, 62.5, 61.2, 63.8, 64.1, 65.3, 64.9, 66.2, 67.1},
			245000,
		),
		snapshotFromHistory(
			"btc-100k",
			"Will Bitcoin reach $100k before year end?",
			"Binary market on Bitcoin touching $100k before Dec 31.",
			"2024-12-31T23:59:59Z",
			[]float64{42.5, 43.8, 41.9, 44.2, 46.7, 48.1, 49.5, 50.3, 52.1, 53.4, 54.6, 55.8},
			178400,
		),
		snapshotFromHistory(
			"ai-regulation",
			"Will a major AI regulation pass in the US by Q4?",
			"Captures the chance of a comprehensive AI regulation passing Congress.",
			"2024-10-01T00:00:00Z",
			[]float64{34.2, 33.8, 35.1, 36.4, 37.3, 38.9, 39.7, 38.5, 40.2, 41.6, 43.1, 44.4},
			98600,
		),
	}

	s.alerts = []models.AlertItem{
		{
			ID:               "alert-001",
			MarketID:         "trump-2024",
			MarketTitle:      fixtures[0].Title,
			ChangePct:        4.6,
			Threshold:        3,
			InsightText:      "Turnout models are shifting after several swing-state polls tightened. Watch for fundraising headlines and legal calendar updates that could reverse sentiment.",
			CreatedAt:        hoursAgo(3),
			Seen:             false,
			TimeToResolution: "3 months",
			VolumeDelta:      52000,
		},
		{
			ID:               "alert-002",
			MarketID:         "btc-100k",
			MarketTitle:      fixtures[1].Title,
			ChangePct:        5.3,
			Threshold:        4,
			InsightText:      "BTC ripped after ETF inflows hit a weekly high and miners signaled lower sell pressure. Key risk: CPI surprise or hawkish Fed minutes.",
			CreatedAt:        hoursAgo(6),
			Seen:             false,
			TimeToResolution: "5 months",
			VolumeDelta:      76000,
		},
		{
			ID:               "alert-003",
			MarketID:         "ai-regulation",
			MarketTitle:      fixtures[2].Title,
			ChangePct:        -2.1,
			Threshold:        2,
			InsightText:      "Momentum cooled after committee markup slipped. Still expect headlines around bipartisan privacy talks; watch lobbying disclosures.",
			CreatedAt:        hoursAgo(12),
			Seen:             true,
			TimeToResolution: "2 months",
			VolumeDelta:      15000,
		},
	}

	for _, snap := range fixtures {
		s.snapshots[snap.MarketID] = snap
		s.pinned = append(s.pinned, s.toPinnedLocked(snap))
	}
}

// toPinnedLocked derives a pinned-collection row from a snapshot.
// Callers hold s.mu.
func (s *Store) toPinnedLocked(snap *models.MarketSnapshot) models.PinnedMarket {
	first := snap.History[0]
	last := snap.History[len(snap.History)-1]

	category := "Politics"
	if strings.Contains(snap.Description, "Bitcoin") {
		category = "Crypto"
	}

	unread := 0
	for _, a := range s.alerts {
		if !a.Seen && a.MarketID == snap.MarketID {
			unread++
		}
	}

	return models.PinnedMarket{
		MarketID:           snap.MarketID,
		Title:              snap.Title,
		Category:           category,
		ImpliedProbability: snap.Latest.ImpliedProbability,
		ChangePct:          round2(last.Value - first.Value),
		Volume24h:          snap.Latest.Volume,
		UpdatedAt:          snap.Latest.UpdatedAt,
		Sparkline:          append([]models.SparklinePoint(nil), snap.History...),
		UnreadAlerts:       unread,
	}
}

// ensureSnapshotLocked registers a plausible snapshot for an unseen id so
// any id becomes pinnable without an external lookup: a smooth upward
// trend with bounded jitter over twelve points.
func (s *Store) ensureSnapshotLocked(marketID string) *models.MarketSnapshot {
	if snap, ok := s.snapshots[marketID]; ok {
		return snap
	}

	values := make([]float64, syntheticHistoryLen)
	for i := range values {
		base := 30 + float64(i)*1.5
		jitter := (s.rng.Float64() - 0.5) * 4
		values[i] = round2(math.Min(maxProb, math.Max(minProb, base+jitter)))
	}

	snap := snapshotFromHistory(
		marketID,
		fmt.Sprintf("Pinned market %s", marketID),
		"Placeholder market while real data loads.",
		time.Now().Add(7*24*time.Hour).UTC().Format(time.RFC3339),
		values,
		25000+float64(s.rng.Intn(25000)),
	)
	s.snapshots[marketID] = snap

	// Mirror the server-side alert worker: a move past the threshold on a
	// fresh market produces an alert.
	change := values[len(values)-1] - values[0]
	if math.Abs(change) >= alertThreshold {
		s.alerts = append([]models.AlertItem{{
			ID:          uuid.New().String(),
			MarketID:    marketID,
			MarketTitle: snap.Title,
			ChangePct:   round2(change),
			Threshold:   alertThreshold,
			InsightText: fmt.Sprintf("Implied probability moved %+.1f points over the tracked window. Generated offline; refresh once the backend is reachable.", change),
			CreatedAt:   time.Now().UTC(),
			Seen:        false,
		}}, s.alerts...)
	}

	s.logger.Debug("synthesized snapshot", zap.String("marketId", marketID))
	return snap
}

func (s *Store) GetPinnedMarkets(_ context.Context, _ string) ([]models.PinnedMarket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ClonePinned(s.pinned), nil
}

// PinMarket is idempotent: pinning an already-pinned id returns the
// existing entry unchanged.
func (s *Store) PinMarket(_ context.Context, _ string, marketID string) (*models.PinnedMarket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.ensureSnapshotLocked(marketID)
	for i := range s.pinned {
		if s.pinned[i].MarketID == marketID {
			entry := models.ClonePinned(s.pinned[i : i+1])
			return &entry[0], nil
		}
	}
	entry := s.toPinnedLocked(snap)
	s.pinned = append(s.pinned, entry)
	out := models.ClonePinned([]models.PinnedMarket{entry})
	return &out[0], nil
}

func (s *Store) UnpinMarket(_ context.Context, _ string, marketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pinned[:0]
	for _, p := range s.pinned {
		if p.MarketID != marketID {
			kept = append(kept, p)
		}
	}
	s.pinned = kept
	return nil
}

func (s *Store) GetAlerts(_ context.Context, _ string) ([]models.AlertItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneAlerts(s.alerts), nil
}

// MarkAlertSeen flips seen on the first matching alert only; unknown ids
// are a no-op.
func (s *Store) MarkAlertSeen(_ context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			s.alerts[i].Seen = true
			break
		}
	}
	return nil
}

func (s *Store) GetMarketSnapshot(_ context.Context, marketID string) (*models.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.CloneSnapshot(s.ensureSnapshotLocked(marketID))
	for _, a := range s.alerts {
		if a.MarketID == marketID {
			snap.Alerts = append(snap.Alerts, a)
		}
	}
	return snap, nil
}

// GetEventDetail always fails: events are live-only.
func (s *Store) GetEventDetail(_ context.Context, _ string) (*models.EventDetail, error) {
	return nil, marketdata.ErrEventsLiveOnly
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
