package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pinwatch/clients/marketdata"
	"pinwatch/internal/models"
)

// DataService is what the coordinator talks to: the full operation set
// plus whether it is backed by the synthetic store, which decides the
// mutation policy (optimistic insert vs. invalidate-and-refetch).
type DataService interface {
	marketdata.Service
	Synthetic() bool
}

// CoordinatorConfig holds cache TTLs.
type CoordinatorConfig struct {
	PinnedTTL   time.Duration
	AlertsTTL   time.Duration
	SnapshotTTL time.Duration
}

type cachedSnapshot struct {
	snap      *models.MarketSnapshot
	fetchedAt time.Time
}

type cachedEvent struct {
	event     *models.EventDetail
	fetchedAt time.Time
}

// Coordinator owns the authoritative in-client copies of the pinned
// collection and the alert collection, serves reads from cache within a
// TTL, applies mutations, and reconciles with the data service.
//
// Generation counters guard against stale settles: every local write bumps
// the collection's generation, and a fetch result is only applied when the
// generation it started from is still current. A slow response settling
// after an invalidation or teardown is dropped instead of clobbering
// newer state.
type Coordinator struct {
	logger *zap.Logger
	svc    DataService
	userID string
	cfg    CoordinatorConfig

	mu            sync.RWMutex
	pinned        []models.PinnedMarket
	pinnedFetched time.Time
	pinnedGen     uint64
	alerts        []models.AlertItem
	alertsFetched time.Time
	alertsGen     uint64
	snapshots     map[string]cachedSnapshot
	events        map[string]cachedEvent
}

func NewCoordinator(logger *zap.Logger, svc DataService, userID string, cfg CoordinatorConfig) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PinnedTTL <= 0 {
		cfg.PinnedTTL = 60 * time.Second
	}
	if cfg.AlertsTTL <= 0 {
		cfg.AlertsTTL = 45 * time.Second
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 120 * time.Second
	}
	return &Coordinator{
		logger:    logger,
		svc:       svc,
		userID:    userID,
		cfg:       cfg,
		snapshots: make(map[string]cachedSnapshot),
		events:    make(map[string]cachedEvent),
	}
}

// ---- Reads ----

// PinnedMarkets serves the cached pinned collection, fetching when the
// cache is stale or empty.
func (c *Coordinator) PinnedMarkets(ctx context.Context) ([]models.PinnedMarket, error) {
	c.mu.RLock()
	fresh := !c.pinnedFetched.IsZero() && time.Since(c.pinnedFetched) < c.cfg.PinnedTTL
	items := models.ClonePinned(c.pinned)
	c.mu.RUnlock()

	if fresh {
		return items, nil
	}
	return c.refreshPinned(ctx)
}

// Alerts serves the cached alert collection, fetching when stale.
func (c *Coordinator) Alerts(ctx context.Context) ([]models.AlertItem, error) {
	c.mu.RLock()
	fresh := !c.alertsFetched.IsZero() && time.Since(c.alertsFetched) < c.cfg.AlertsTTL
	alerts := models.CloneAlerts(c.alerts)
	c.mu.RUnlock()

	if fresh {
		return alerts, nil
	}
	return c.refreshAlerts(ctx)
}

// MarketSnapshot serves a per-market snapshot with its own TTL.
func (c *Coordinator) MarketSnapshot(ctx context.Context, marketID string) (*models.MarketSnapshot, error) {
	c.mu.RLock()
	cached, ok := c.snapshots[marketID]
	c.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < c.cfg.SnapshotTTL {
		return models.CloneSnapshot(cached.snap), nil
	}

	snap, err := c.svc.GetMarketSnapshot(ctx, marketID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if ctx.Err() == nil {
		c.snapshots[marketID] = cachedSnapshot{snap: models.CloneSnapshot(snap), fetchedAt: time.Now()}
	}
	c.mu.Unlock()
	return snap, nil
}

// EventDetail serves a per-event detail view. Events are live-only, so
// failures propagate instead of degrading.
func (c *Coordinator) EventDetail(ctx context.Context, eventID string) (*models.EventDetail, error) {
	c.mu.RLock()
	cached, ok := c.events[eventID]
	c.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < c.cfg.SnapshotTTL {
		ev := *cached.event
		return &ev, nil
	}

	event, err := c.svc.GetEventDetail(ctx, eventID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if ctx.Err() == nil {
		stored := *event
		c.events[eventID] = cachedEvent{event: &stored, fetchedAt: time.Now()}
	}
	c.mu.Unlock()
	return event, nil
}

// ---- Derived reads (computed from cache, never a round trip) ----

// UnreadAlertCount counts unseen alerts in the cached collection.
func (c *Coordinator) UnreadAlertCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, a := range c.alerts {
		if !a.Seen {
			count++
		}
	}
	return count
}

// LatestAlertID returns the id of the newest cached alert, or "".
func (c *Coordinator) LatestAlertID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var latest *models.AlertItem
	for i := range c.alerts {
		if latest == nil || c.alerts[i].CreatedAt.After(latest.CreatedAt) {
			latest = &c.alerts[i]
		}
	}
	if latest == nil {
		return ""
	}
	return latest.ID
}

// Summary is the aggregate view over the cached collections.
type Summary struct {
	MarketCount    int     `json:"marketCount"`
	AvgProbability float64 `json:"avgProbability"`
	AvgMove        float64 `json:"avgMove"`
	TotalVolume24h float64 `json:"totalVolume24h"`
	UnreadAlerts   int     `json:"unreadAlerts"`
	LatestAlertID  string  `json:"latestAlertId,omitempty"`
}

// Summarize computes dashboard aggregates on read; nothing here is stored
// as a separately mutated field.
func (c *Coordinator) Summarize() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{MarketCount: len(c.pinned)}
	for _, p := range c.pinned {
		s.AvgProbability += p.ImpliedProbability
		s.AvgMove += p.ChangePct
		s.TotalVolume24h += p.Volume24h
	}
	if len(c.pinned) > 0 {
		s.AvgProbability /= float64(len(c.pinned))
		s.AvgMove /= float64(len(c.pinned))
	}

	var latest *models.AlertItem
	for i := range c.alerts {
		if !c.alerts[i].Seen {
			s.UnreadAlerts++
		}
		if latest == nil || c.alerts[i].CreatedAt.After(latest.CreatedAt) {
			latest = &c.alerts[i]
		}
	}
	if latest != nil {
		s.LatestAlertID = latest.ID
	}
	return s
}

// ---- Mutations ----

// Pin adds a market to the pinned collection by canonical id. Under the
// synthetic store the returned entry is inserted optimistically; against
// the live backend the collection is refetched after success, because the
// server may enrich the entry with fields unknown to the client.
func (c *Coordinator) Pin(ctx context.Context, marketID string) error {
	entry, err := c.svc.PinMarket(ctx, c.userID, marketID)
	if err != nil {
		return err
	}

	if c.svc.Synthetic() && entry != nil {
		c.mu.Lock()
		exists := false
		for i := range c.pinned {
			if c.pinned[i].MarketID == marketID {
				exists = true
				break
			}
		}
		if !exists {
			c.pinned = append(c.pinned, *entry)
		}
		c.pinnedGen++
		c.mu.Unlock()
		return nil
	}

	_, err = c.refreshPinned(ctx)
	return err
}

// Unpin removes a market. Symmetric to Pin: local removal under synthetic
// mode, invalidate-and-refetch against the live backend.
func (c *Coordinator) Unpin(ctx context.Context, marketID string) error {
	if c.svc.Synthetic() {
		c.mu.Lock()
		kept := c.pinned[:0]
		for _, p := range c.pinned {
			if p.MarketID != marketID {
				kept = append(kept, p)
			}
		}
		c.pinned = kept
		c.pinnedGen++
		c.mu.Unlock()
		return c.svc.UnpinMarket(ctx, c.userID, marketID)
	}

	if err := c.svc.UnpinMarket(ctx, c.userID, marketID); err != nil {
		return err
	}
	_, err := c.refreshPinned(ctx)
	return err
}

// MarkAlertSeen runs the three-phase mutation protocol: snapshot the
// collection, apply the optimistic flip, settle against the service, roll
// back to the captured snapshot on failure, and reconcile with a refetch
// regardless of outcome.
func (c *Coordinator) MarkAlertSeen(ctx context.Context, alertID string) error {
	c.mu.Lock()
	prev := models.CloneAlerts(c.alerts)
	for i := range c.alerts {
		if c.alerts[i].ID == alertID {
			c.alerts[i].Seen = true
		}
	}
	c.alertsGen++
	c.mu.Unlock()

	err := c.svc.MarkAlertSeen(ctx, alertID)
	if err != nil {
		// Restore exactly the state captured at this mutation's start,
		// not whatever the collection looks like now.
		c.mu.Lock()
		c.alerts = prev
		c.alertsGen++
		c.mu.Unlock()
	}

	if _, refreshErr := c.refreshAlerts(ctx); refreshErr != nil {
		c.logger.Warn("alert reconcile refetch failed", zap.Error(refreshErr))
	}
	return err
}

// ---- Refresh ----

func (c *Coordinator) refreshPinned(ctx context.Context) ([]models.PinnedMarket, error) {
	c.mu.RLock()
	gen := c.pinnedGen
	c.mu.RUnlock()

	items, err := c.svc.GetPinnedMarkets(ctx, c.userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.pinnedGen == gen && ctx.Err() == nil {
		c.pinned = models.ClonePinned(items)
		c.pinnedFetched = time.Now()
	} else {
		c.logger.Debug("dropping stale pinned fetch",
			zap.Uint64("startedGen", gen),
			zap.Uint64("currentGen", c.pinnedGen),
		)
	}
	c.mu.Unlock()
	return items, nil
}

func (c *Coordinator) refreshAlerts(ctx context.Context) ([]models.AlertItem, error) {
	c.mu.RLock()
	gen := c.alertsGen
	c.mu.RUnlock()

	alerts, err := c.svc.GetAlerts(ctx, c.userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.alertsGen == gen && ctx.Err() == nil {
		c.alerts = models.CloneAlerts(alerts)
		c.alertsFetched = time.Now()
	} else {
		c.logger.Debug("dropping stale alerts fetch",
			zap.Uint64("startedGen", gen),
			zap.Uint64("currentGen", c.alertsGen),
		)
	}
	c.mu.Unlock()
	return alerts, nil
}

// StartAutoRefresh keeps the two collections warm while the owning view
// is alive. Loops stop when ctx is canceled; an in-flight fetch is not
// aborted, but its result will not be applied after teardown.
func (c *Coordinator) StartAutoRefresh(ctx context.Context, pinnedEvery, alertsEvery time.Duration) {
	go c.refreshLoop(ctx, "pinned", pinnedEvery, func() {
		if _, err := c.refreshPinned(ctx); err != nil {
			c.logger.Warn("pinned auto-refresh failed", zap.Error(err))
		}
	})
	go c.refreshLoop(ctx, "alerts", alertsEvery, func() {
		if _, err := c.refreshAlerts(ctx); err != nil {
			c.logger.Warn("alerts auto-refresh failed", zap.Error(err))
		}
	})
}

func (c *Coordinator) refreshLoop(ctx context.Context, name string, every time.Duration, refresh func()) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("auto-refresh stopped", zap.String("collection", name))
			return
		case <-ticker.C:
			refresh()
		}
	}
}
