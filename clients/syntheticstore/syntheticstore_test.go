package syntheticstore

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"pinwatch/clients/marketdata"
)

func TestSeedFixtures(t *testing.T) {
	s := NewStore(zap.NewNop(), 1)
	ctx := context.Background()

	pinned, err := s.GetPinnedMarkets(ctx, "user")
	if err != nil {
		t.Fatal(err)
	}
	if len(pinned) != 3 {
		t.Fatalf("seeded pinned = %d, want 3", len(pinned))
	}

	byID := map[string]bool{}
	for _, p := range pinned {
		byID[p.MarketID] = true
		if len(p.Sparkline) != syntheticHistoryLen {
			t.Errorf("%s sparkline = %d points, want %d", p.MarketID, len(p.Sparkline), syntheticHistoryLen)
		}
	}
	for _, id := range []string{"trump-2024", "btc-100k", "ai-regulation"} {
		if !byID[id] {
			t.Errorf("missing seeded market %s", id)
		}
	}

	alerts, err := s.GetAlerts(ctx, "user")
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 3 {
		t.Fatalf("seeded alerts = %d, want 3", len(alerts))
	}
}

func TestPinIdempotent(t *testing.T) {
	s := NewStore(zap.NewNop(), 1)
	ctx := context.Background()

	first, err := s.PinMarket(ctx, "user", "fresh-market")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.PinMarket(ctx, "user", "fresh-market")
	if err != nil {
		t.Fatal(err)
	}
	if first.MarketID != second.MarketID {
		t.Errorf("repeated pin returned different markets: %s vs %s", first.MarketID, second.MarketID)
	}

	pinned, _ := s.GetPinnedMarkets(ctx, "user")
	count := 0
	for _, p := range pinned {
		if p.MarketID == "fresh-market" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("fresh-market appears %d times, want 1", count)
	}
}

func TestUnpinRoundTrip(t *testing.T) {
	s := NewStore(zap.NewNop(), 1)
	ctx := context.Background()

	if _, err := s.PinMarket(ctx, "user", "round-trip"); err != nil {
		t.Fatal(err)
	}
	if err := s.UnpinMarket(ctx, "user", "round-trip"); err != nil {
		t.Fatal(err)
	}

	pinned, _ := s.GetPinnedMarkets(ctx, "user")
	for _, p := range pinned {
		if p.MarketID == "round-trip" {
			t.Fatal("market still pinned after unpin")
		}
	}
}

func TestSynthesizedSnapshotBounds(t *testing.T) {
	s := NewStore(zap.NewNop(), 7)
	ctx := context.Background()

	snap, err := s.GetMarketSnapshot(ctx, "never-seen-before")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.History) != syntheticHistoryLen {
		t.Fatalf("history = %d points, want %d", len(snap.History), syntheticHistoryLen)
	}
	for i, p := range snap.History {
		if p.Value < minProb || p.Value > maxProb {
			t.Errorf("point %d value %.2f outside [%.0f, %.0f]", i, p.Value, minProb, maxProb)
		}
		if i > 0 && !snap.History[i-1].Timestamp.Before(p.Timestamp) {
			t.Errorf("history not ordered at point %d", i)
		}
	}
	if snap.Latest.ImpliedProbability != snap.History[len(snap.History)-1].Value {
		t.Error("latest probability does not match the final history point")
	}
}

func TestSeedDeterminism(t *testing.T) {
	ctx := context.Background()
	a, _ := NewStore(zap.NewNop(), 42).GetMarketSnapshot(ctx, "det-check")
	b, _ := NewStore(zap.NewNop(), 42).GetMarketSnapshot(ctx, "det-check")

	if len(a.History) != len(b.History) {
		t.Fatal("history lengths differ")
	}
	for i := range a.History {
		if a.History[i].Value != b.History[i].Value {
			t.Fatalf("point %d differs: %.2f vs %.2f", i, a.History[i].Value, b.History[i].Value)
		}
	}
}

func TestDefensiveCopies(t *testing.T) {
	s := NewStore(zap.NewNop(), 1)
	ctx := context.Background()

	pinned, _ := s.GetPinnedMarkets(ctx, "user")
	pinned[0].Title = "mutated"
	pinned[0].Sparkline[0].Value = -999

	again, _ := s.GetPinnedMarkets(ctx, "user")
	if again[0].Title == "mutated" || again[0].Sparkline[0].Value == -999 {
		t.Error("caller mutation leaked into store state")
	}

	snap, _ := s.GetMarketSnapshot(ctx, "trump-2024")
	snap.History[0].Value = -999
	snapAgain, _ := s.GetMarketSnapshot(ctx, "trump-2024")
	if snapAgain.History[0].Value == -999 {
		t.Error("snapshot mutation leaked into store state")
	}
}

func TestMarkAlertSeen(t *testing.T) {
	s := NewStore(zap.NewNop(), 1)
	ctx := context.Background()

	if err := s.MarkAlertSeen(ctx, "alert-001"); err != nil {
		t.Fatal(err)
	}
	alerts, _ := s.GetAlerts(ctx, "user")
	for _, a := range alerts {
		if a.ID == "alert-001" && !a.Seen {
			t.Error("alert-001 still unseen after mark")
		}
	}

	// Unknown ids are a no-op, not an error.
	if err := s.MarkAlertSeen(ctx, "no-such-alert"); err != nil {
		t.Errorf("unknown alert id returned error: %v", err)
	}
}

func TestEventsLiveOnly(t *testing.T) {
	s := NewStore(zap.NewNop(), 1)
	if _, err := s.GetEventDetail(context.Background(), "event-1"); !errors.Is(err, marketdata.ErrEventsLiveOnly) {
		t.Fatalf("err = %v, want ErrEventsLiveOnly", err)
	}
}
