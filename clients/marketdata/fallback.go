package marketdata

import (
	"context"

	"go.uber.org/zap"

	"pinwatch/internal/models"
)

// FallbackService routes operations between the live gateway and the
// synthetic store. Reads degrade to the synthetic store when the live call
// fails; writes propagate their errors so callers can roll back optimistic
// state. Event detail is live-only and always propagates.
type FallbackService struct {
	logger    *zap.Logger
	live      Service
	synthetic Service
	mock      bool
}

// NewFallbackService builds the service the coordinator talks to. With
// mock=true every operation goes straight to the synthetic store.
func NewFallbackService(logger *zap.Logger, live, synthetic Service, mock bool) *FallbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackService{
		logger:    logger,
		live:      live,
		synthetic: synthetic,
		mock:      mock,
	}
}

// Synthetic reports whether the service is running against the synthetic
// store exclusively. Mutation policy (optimistic vs. refetch) keys off it.
func (s *FallbackService) Synthetic() bool {
	return s.mock
}

func (s *FallbackService) GetPinnedMarkets(ctx context.Context, userID string) ([]models.PinnedMarket, error) {
	if s.mock {
		return s.synthetic.GetPinnedMarkets(ctx, userID)
	}
	items, err := s.live.GetPinnedMarkets(ctx, userID)
	if err != nil {
		s.logger.Warn("falling back to synthetic data for pinned markets", zap.Error(err))
		return s.synthetic.GetPinnedMarkets(ctx, userID)
	}
	return items, nil
}

func (s *FallbackService) PinMarket(ctx context.Context, userID, marketID string) (*models.PinnedMarket, error) {
	if s.mock {
		return s.synthetic.PinMarket(ctx, userID, marketID)
	}
	return s.live.PinMarket(ctx, userID, marketID)
}

func (s *FallbackService) UnpinMarket(ctx context.Context, userID, marketID string) error {
	if s.mock {
		return s.synthetic.UnpinMarket(ctx, userID, marketID)
	}
	return s.live.UnpinMarket(ctx, userID, marketID)
}

func (s *FallbackService) GetAlerts(ctx context.Context, userID string) ([]models.AlertItem, error) {
	if s.mock {
		return s.synthetic.GetAlerts(ctx, userID)
	}
	alerts, err := s.live.GetAlerts(ctx, userID)
	if err != nil {
		s.logger.Warn("falling back to synthetic data for alerts", zap.Error(err))
		return s.synthetic.GetAlerts(ctx, userID)
	}
	return alerts, nil
}

func (s *FallbackService) MarkAlertSeen(ctx context.Context, alertID string) error {
	if s.mock {
		return s.synthetic.MarkAlertSeen(ctx, alertID)
	}
	return s.live.MarkAlertSeen(ctx, alertID)
}

func (s *FallbackService) GetMarketSnapshot(ctx context.Context, marketID string) (*models.MarketSnapshot, error) {
	if s.mock {
		return s.synthetic.GetMarketSnapshot(ctx, marketID)
	}
	snap, err := s.live.GetMarketSnapshot(ctx, marketID)
	if err != nil {
		s.logger.Warn("falling back to synthetic data for market snapshot",
			zap.String("marketId", marketID),
			zap.Error(err),
		)
		return s.synthetic.GetMarketSnapshot(ctx, marketID)
	}
	return snap, nil
}

func (s *FallbackService) GetEventDetail(ctx context.Context, eventID string) (*models.EventDetail, error) {
	if s.mock {
		return nil, ErrEventsLiveOnly
	}
	return s.live.GetEventDetail(ctx, eventID)
}
