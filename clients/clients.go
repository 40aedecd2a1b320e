package clients

import (
	"pinwatch/clients/backendapi"
	"pinwatch/clients/directory"
	"pinwatch/clients/marketdata"
	"pinwatch/clients/syntheticstore"
	"pinwatch/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Backend   *backendapi.Client
	Directory *directory.Client
	Synthetic *syntheticstore.Store

	// MarketData is what the coordinator talks to: the live gateway with
	// synthetic fallback, or the synthetic store alone in offline mode.
	MarketData *marketdata.FallbackService
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	backend := backendapi.NewClient(logger, cfg.Backend.BaseURL, cfg.Backend.Timeout)
	synthetic := syntheticstore.NewStore(logger, cfg.Synthetic.Seed)

	return &Clients{
		Logger:     logger,
		Backend:    backend,
		Directory:  directory.NewClient(logger, cfg.Directory.BaseURL, cfg.Directory.Timeout),
		Synthetic:  synthetic,
		MarketData: marketdata.NewFallbackService(logger, backend, synthetic, cfg.Synthetic.Enabled),
	}
}
