package app

import (
	"context"
	"sync"

	"pinwatch/internal/models"
)

// fakeDataService is a hand-rolled DataService for coordinator tests.
// Server-side state lives in pinned/alerts; per-operation error fields and
// hooks simulate failures and interleavings.
type fakeDataService struct {
	mu        sync.Mutex
	synthetic bool

	pinned []models.PinnedMarket
	alerts []models.AlertItem

	pinnedErr error
	alertsErr error
	pinErr    error
	unpinErr  error
	seenErr   error

	pinnedCalls int
	alertsCalls int

	// Optional hooks, called without the fake's lock held.
	beforePinnedReturn func()
	onMarkSeen         func(alertID string)
}

func (f *fakeDataService) Synthetic() bool { return f.synthetic }

func (f *fakeDataService) GetPinnedMarkets(_ context.Context, _ string) ([]models.PinnedMarket, error) {
	f.mu.Lock()
	f.pinnedCalls++
	err := f.pinnedErr
	items := models.ClonePinned(f.pinned)
	f.mu.Unlock()

	if f.beforePinnedReturn != nil {
		f.beforePinnedReturn()
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (f *fakeDataService) PinMarket(_ context.Context, _ string, marketID string) (*models.PinnedMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pinErr != nil {
		return nil, f.pinErr
	}
	for i := range f.pinned {
		if f.pinned[i].MarketID == marketID {
			entry := f.pinned[i]
			if f.synthetic {
				return &entry, nil
			}
			return nil, nil
		}
	}
	entry := models.PinnedMarket{MarketID: marketID, Title: "Market " + marketID}
	f.pinned = append(f.pinned, entry)
	if f.synthetic {
		return &entry, nil
	}
	return nil, nil
}

func (f *fakeDataService) UnpinMarket(_ context.Context, _ string, marketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unpinErr != nil {
		return f.unpinErr
	}
	kept := f.pinned[:0]
	for _, p := range f.pinned {
		if p.MarketID != marketID {
			kept = append(kept, p)
		}
	}
	f.pinned = kept
	return nil
}

func (f *fakeDataService) GetAlerts(_ context.Context, _ string) ([]models.AlertItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alertsCalls++
	if f.alertsErr != nil {
		return nil, f.alertsErr
	}
	return models.CloneAlerts(f.alerts), nil
}

func (f *fakeDataService) MarkAlertSeen(_ context.Context, alertID string) error {
	if f.onMarkSeen != nil {
		f.onMarkSeen(alertID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seenErr != nil {
		return f.seenErr
	}
	for i := range f.alerts {
		if f.alerts[i].ID == alertID {
			f.alerts[i].Seen = true
			break
		}
	}
	return nil
}

func (f *fakeDataService) GetMarketSnapshot(_ context.Context, marketID string) (*models.MarketSnapshot, error) {
	return &models.MarketSnapshot{MarketID: marketID, Title: "Market " + marketID}, nil
}

func (f *fakeDataService) GetEventDetail(_ context.Context, eventID string) (*models.EventDetail, error) {
	return &models.EventDetail{ID: eventID, Title: "Event " + eventID}, nil
}
