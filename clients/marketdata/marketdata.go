// Package marketdata defines the operation set shared by the live backend
// gateway and the synthetic store, plus the fallback wrapper that picks
// between them.
package marketdata

import (
	"context"
	"errors"

	"pinwatch/internal/models"
)

// ErrEventsLiveOnly is returned for event-detail reads when no live
// backend is reachable; events have no synthetic equivalent.
var ErrEventsLiveOnly = errors.New("event details are only available from the live backend")

// Service is the backend-or-mock operation set. The live gateway and the
// synthetic store are capability-equivalent implementations; callers never
// branch on which one they hold beyond the fallback wrapper below.
type Service interface {
	// GetPinnedMarkets returns the pinned collection for a user.
	GetPinnedMarkets(ctx context.Context, userID string) ([]models.PinnedMarket, error)

	// PinMarket pins a market. The synthetic store returns the resulting
	// entry so callers can insert it optimistically; the live gateway
	// returns nil because the server may enrich the entry with fields
	// unknown to the client, and callers must refetch instead.
	PinMarket(ctx context.Context, userID, marketID string) (*models.PinnedMarket, error)

	// UnpinMarket removes a pin. Unpinning an absent id is not an error.
	UnpinMarket(ctx context.Context, userID, marketID string) error

	// GetAlerts returns the alert collection for a user, newest first.
	GetAlerts(ctx context.Context, userID string) ([]models.AlertItem, error)

	// MarkAlertSeen flips an alert's seen flag to true.
	MarkAlertSeen(ctx context.Context, alertID string) error

	// GetMarketSnapshot returns the full view of one market.
	GetMarketSnapshot(ctx context.Context, marketID string) (*models.MarketSnapshot, error)

	// GetEventDetail returns a multi-outcome event container.
	GetEventDetail(ctx context.Context, eventID string) (*models.EventDetail, error)
}
