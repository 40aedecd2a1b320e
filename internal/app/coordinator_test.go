package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"pinwatch/internal/models"
)

func newTestCoordinator(svc DataService) *Coordinator {
	return NewCoordinator(zap.NewNop(), svc, "1", CoordinatorConfig{
		PinnedTTL:   time.Minute,
		AlertsTTL:   45 * time.Second,
		SnapshotTTL: 2 * time.Minute,
	})
}

func pinnedIDs(items []models.PinnedMarket) []string {
	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.MarketID)
	}
	return ids
}

func TestPinnedMarkets_ServedFromCacheWithinTTL(t *testing.T) {
	svc := &fakeDataService{
		pinned: []models.PinnedMarket{{MarketID: "516710", Title: "Recession"}},
	}
	c := newTestCoordinator(svc)

	for i := 0; i < 3; i++ {
		items, err := c.PinnedMarkets(context.Background())
		if err != nil {
			t.Fatalf("PinnedMarkets: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(items))
		}
	}

	if svc.pinnedCalls != 1 {
		t.Errorf("expected 1 fetch within TTL, got %d", svc.pinnedCalls)
	}
}

func TestPin_SyntheticInsertsOptimistically(t *testing.T) {
	svc := &fakeDataService{synthetic: true}
	c := newTestCoordinator(svc)

	if err := c.Pin(context.Background(), "516710"); err != nil {
		t.Fatalf("Pin: %v", err)
	}

	// No refetch: the returned entry was inserted directly.
	if svc.pinnedCalls != 0 {
		t.Errorf("expected no refetch in synthetic mode, got %d calls", svc.pinnedCalls)
	}

	items, err := c.PinnedMarkets(context.Background())
	if err != nil {
		t.Fatalf("PinnedMarkets: %v", err)
	}
	if got := pinnedIDs(items); !reflect.DeepEqual(got, []string{"516710"}) {
		t.Errorf("unexpected collection: %v", got)
	}
}

func TestPin_Idempotent(t *testing.T) {
	svc := &fakeDataService{synthetic: true}
	c := newTestCoordinator(svc)

	if err := c.Pin(context.Background(), "516710"); err != nil {
		t.Fatalf("first Pin: %v", err)
	}
	if err := c.Pin(context.Background(), "516710"); err != nil {
		t.Fatalf("second Pin: %v", err)
	}

	items, _ := c.PinnedMarkets(context.Background())
	if len(items) != 1 {
		t.Errorf("expected exactly one entry after double pin, got %d", len(items))
	}
}

func TestPin_LiveRefetchesCollection(t *testing.T) {
	svc := &fakeDataService{}
	c := newTestCoordinator(svc)

	if err := c.Pin(context.Background(), "516710"); err != nil {
		t.Fatalf("Pin: %v", err)
	}

	if svc.pinnedCalls != 1 {
		t.Errorf("expected exactly one refetch after live pin, got %d", svc.pinnedCalls)
	}
	items, _ := c.PinnedMarkets(context.Background())
	if got := pinnedIDs(items); !reflect.DeepEqual(got, []string{"516710"}) {
		t.Errorf("unexpected collection: %v", got)
	}
}

func TestPin_LiveFailurePropagatesWithoutLocalChange(t *testing.T) {
	svc := &fakeDataService{pinErr: errors.New("backend status=500")}
	c := newTestCoordinator(svc)

	if err := c.Pin(context.Background(), "516710"); err == nil {
		t.Fatal("expected error")
	}
	items, _ := c.PinnedMarkets(context.Background())
	if len(items) != 0 {
		t.Errorf("failed pin must not touch the collection, got %v", pinnedIDs(items))
	}
}

func TestUnpin_RoundTripRestoresMembership(t *testing.T) {
	svc := &fakeDataService{
		synthetic: true,
		pinned:    []models.PinnedMarket{{MarketID: "trump-2024"}},
	}
	c := newTestCoordinator(svc)

	before, _ := c.PinnedMarkets(context.Background())

	if err := c.Pin(context.Background(), "516710"); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if err := c.Unpin(context.Background(), "516710"); err != nil {
		t.Fatalf("Unpin: %v", err)
	}

	after, _ := c.PinnedMarkets(context.Background())
	if !reflect.DeepEqual(pinnedIDs(before), pinnedIDs(after)) {
		t.Errorf("membership changed: before=%v after=%v", pinnedIDs(before), pinnedIDs(after))
	}
}

func TestMarkAlertSeen_OptimisticBeforeSettle(t *testing.T) {
	svc := &fakeDataService{
		alerts: []models.AlertItem{
			{ID: "alert-001", Seen: false},
			{ID: "alert-002", Seen: false},
		},
	}
	c := newTestCoordinator(svc)
	if _, err := c.Alerts(context.Background()); err != nil {
		t.Fatalf("Alerts: %v", err)
	}

	var unreadDuringSettle int
	svc.onMarkSeen = func(string) {
		unreadDuringSettle = c.UnreadAlertCount()
	}

	if err := c.MarkAlertSeen(context.Background(), "alert-001"); err != nil {
		t.Fatalf("MarkAlertSeen: %v", err)
	}
	if unreadDuringSettle != 1 {
		t.Errorf("optimistic flip not visible during settle: unread=%d", unreadDuringSettle)
	}
	if got := c.UnreadAlertCount(); got != 1 {
		t.Errorf("unread after settle = %d, want 1", got)
	}
}

// The rollback law: when the settle fails, the collection must equal the
// state captured at the mutation's start, field for field.
func TestMarkAlertSeen_RollbackOnFailure(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &fakeDataService{
		alerts: []models.AlertItem{
			{ID: "alert-001", MarketID: "trump-2024", MarketTitle: "Election", ChangePct: 4.6, Threshold: 3, CreatedAt: now, Seen: false},
			{ID: "alert-002", MarketID: "btc-100k", MarketTitle: "BTC", ChangePct: 5.3, Threshold: 4, CreatedAt: now.Add(-time.Hour), Seen: true},
		},
	}
	c := newTestCoordinator(svc)
	before, err := c.Alerts(context.Background())
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}

	// Fail both the settle and the reconcile refetch, so the state we
	// observe afterwards is the rollback itself.
	svc.seenErr = errors.New("backend status=500")
	svc.alertsErr = errors.New("backend unreachable")

	if err := c.MarkAlertSeen(context.Background(), "alert-001"); err == nil {
		t.Fatal("expected settle error")
	}

	c.mu.RLock()
	after := models.CloneAlerts(c.alerts)
	c.mu.RUnlock()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback mismatch:\nbefore=%+v\nafter=%+v", before, after)
	}
}

func TestMarkAlertSeen_ReconcilesWithRefetch(t *testing.T) {
	svc := &fakeDataService{
		alerts: []models.AlertItem{{ID: "alert-001", Seen: false}},
	}
	c := newTestCoordinator(svc)
	if _, err := c.Alerts(context.Background()); err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	calls := svc.alertsCalls

	if err := c.MarkAlertSeen(context.Background(), "alert-001"); err != nil {
		t.Fatalf("MarkAlertSeen: %v", err)
	}
	if svc.alertsCalls != calls+1 {
		t.Errorf("expected reconcile refetch after settle, calls=%d", svc.alertsCalls)
	}
}

func TestUnreadAlertCount_DerivedFromCache(t *testing.T) {
	svc := &fakeDataService{
		alerts: []models.AlertItem{
			{ID: "a", Seen: false},
			{ID: "b", Seen: true},
			{ID: "c", Seen: false},
		},
	}
	c := newTestCoordinator(svc)

	if got := c.UnreadAlertCount(); got != 0 {
		t.Errorf("empty cache should count 0, got %d", got)
	}

	if _, err := c.Alerts(context.Background()); err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	calls := svc.alertsCalls
	if got := c.UnreadAlertCount(); got != 2 {
		t.Errorf("unread = %d, want 2", got)
	}
	if svc.alertsCalls != calls {
		t.Error("derived read must not issue a round trip")
	}
}

func TestSummarize(t *testing.T) {
	svc := &fakeDataService{
		pinned: []models.PinnedMarket{
			{MarketID: "a", ImpliedProbability: 60, ChangePct: 4, Volume24h: 1000},
			{MarketID: "b", ImpliedProbability: 40, ChangePct: -2, Volume24h: 500},
		},
		alerts: []models.AlertItem{
			{ID: "a1", CreatedAt: time.Now().Add(-time.Hour)},
			{ID: "a2", CreatedAt: time.Now()},
		},
	}
	c := newTestCoordinator(svc)
	if _, err := c.PinnedMarkets(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Alerts(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := c.Summarize()
	if s.MarketCount != 2 || s.AvgProbability != 50 || s.AvgMove != 1 || s.TotalVolume24h != 1500 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.UnreadAlerts != 2 {
		t.Errorf("unread = %d, want 2", s.UnreadAlerts)
	}
	if s.LatestAlertID != "a2" {
		t.Errorf("latest alert = %q, want a2", s.LatestAlertID)
	}
}

// A fetch that settles after the collection moved on must be dropped.
func TestRefresh_StaleSettleIsDropped(t *testing.T) {
	svc := &fakeDataService{synthetic: true}
	c := newTestCoordinator(svc)

	fetchStarted := make(chan struct{})
	releaseFetch := make(chan struct{})
	svc.beforePinnedReturn = func() {
		close(fetchStarted)
		<-releaseFetch
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Empty cache: this goes to the service and blocks in the hook.
		_, _ = c.PinnedMarkets(context.Background())
	}()

	<-fetchStarted
	svc.beforePinnedReturn = nil

	// A pin lands while the fetch is in flight.
	if err := c.Pin(context.Background(), "516710"); err != nil {
		t.Fatalf("Pin: %v", err)
	}

	close(releaseFetch)
	<-done

	// Inspect the cache directly: the pre-pin fetch settled last but must
	// not have overwritten the optimistic insert.
	c.mu.RLock()
	got := pinnedIDs(c.pinned)
	c.mu.RUnlock()
	if !reflect.DeepEqual(got, []string{"516710"}) {
		t.Errorf("stale fetch clobbered the optimistic pin: %v", got)
	}
}

func TestMarketSnapshot_CachedWithinTTL(t *testing.T) {
	svc := &fakeDataService{}
	c := newTestCoordinator(svc)

	first, err := c.MarketSnapshot(context.Background(), "516710")
	if err != nil {
		t.Fatalf("MarketSnapshot: %v", err)
	}
	second, err := c.MarketSnapshot(context.Background(), "516710")
	if err != nil {
		t.Fatalf("MarketSnapshot: %v", err)
	}
	if first.MarketID != second.MarketID {
		t.Error("snapshot changed between cached reads")
	}
	// Returned snapshots are copies; mutating one must not leak back.
	second.Title = "mutated"
	third, _ := c.MarketSnapshot(context.Background(), "516710")
	if third.Title == "mutated" {
		t.Error("cache returned a shared reference")
	}
}
