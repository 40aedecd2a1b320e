package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"pinwatch/clients/directory"
	"pinwatch/internal/marketref"
	"pinwatch/internal/storage"
)

// SlugResolver turns a marketplace slug into a canonical numeric id.
type SlugResolver interface {
	Resolve(ctx context.Context, slug string, isEvent bool) (string, error)
}

// ServerConfig holds the local API server settings.
type ServerConfig struct {
	Port            int
	AllowedOrigins  []string
	MarketplaceHost string
	PushInterval    time.Duration
}

// Server is the data surface for the dashboard and the browser popup: a
// thin JSON layer over the coordinator plus a websocket push channel. It
// also plays the host-shell role of remembering which alerts were already
// surfaced.
type Server struct {
	logger      *zap.Logger
	coordinator *Coordinator
	resolver    SlugResolver
	shell       *storage.Storage
	cfg         ServerConfig

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func NewServer(logger *zap.Logger, coordinator *Coordinator, resolver SlugResolver, shell *storage.Storage, cfg ServerConfig) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 5 * time.Second
	}
	if cfg.MarketplaceHost == "" {
		cfg.MarketplaceHost = marketref.DefaultHost
	}
	return &Server{
		logger:      logger,
		coordinator: coordinator,
		resolver:    resolver,
		shell:       shell,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the route table. Split out for handler tests.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pinned", s.handleGetPinned).Methods(http.MethodGet)
	api.HandleFunc("/pin", s.handlePin).Methods(http.MethodPost)
	api.HandleFunc("/pinned/{marketId}", s.handleUnpin).Methods(http.MethodDelete)
	api.HandleFunc("/alerts", s.handleGetAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{alertId}/seen", s.handleMarkSeen).Methods(http.MethodPost)
	api.HandleFunc("/market/{marketId}", s.handleGetMarket).Methods(http.MethodGet)
	api.HandleFunc("/event/{eventId}", s.handleGetEvent).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleGetSummary).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return router
}

// Start runs the server and the alert-surfacing loop until ctx cancels.
func (s *Server) Start(ctx context.Context) error {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      c.Handler(s.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.surfaceAlertLoop(ctx)

	s.logger.Info("api server listening", zap.Int("port", s.cfg.Port))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown error", zap.Error(err))
	}
}

// surfaceAlertLoop watches the cached alert collection and records newly
// surfaced alerts in shell storage, so a restart does not re-announce
// them. Delivery itself (badges, OS notifications) is the host platform's
// job; this only maintains the "most recent alert" state it consumes.
func (s *Server) surfaceAlertLoop(ctx context.Context) {
	if s.shell == nil {
		return
	}
	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.surfaceNewAlerts()
		}
	}
}

func (s *Server) surfaceNewAlerts() {
	latest := s.coordinator.LatestAlertID()
	if latest == "" {
		return
	}
	last, err := s.shell.LastAlertID()
	if err != nil {
		s.logger.Warn("failed to read last surfaced alert", zap.Error(err))
		return
	}
	if latest == last {
		return
	}

	alerts, err := s.coordinator.Alerts(context.Background())
	if err != nil {
		s.logger.Warn("failed to load alerts for surfacing", zap.Error(err))
		return
	}
	for _, a := range alerts {
		if a.ID != latest {
			continue
		}
		inserted, err := s.shell.MarkSurfaced(a)
		if err != nil {
			s.logger.Warn("failed to log surfaced alert", zap.Error(err))
			return
		}
		if inserted {
			s.logger.Info("new alert surfaced",
				zap.String("alertId", a.ID),
				zap.String("marketId", a.MarketID),
				zap.Float64("changePct", a.ChangePct),
			)
		}
		if err := s.shell.SetLastAlertID(latest); err != nil {
			s.logger.Warn("failed to store last surfaced alert", zap.Error(err))
		}
		return
	}
}

// ---- Handlers ----

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleGetPinned(w http.ResponseWriter, r *http.Request) {
	items, err := s.coordinator.PinnedMarkets(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type pinRequest struct {
	// Input is free-form: a numeric id, a slug, or a marketplace URL.
	Input string `json:"input"`
}

type pinResponse struct {
	Status   string `json:"status"`
	MarketID string `json:"marketId"`
	IsEvent  bool   `json:"isEvent,omitempty"`
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ref := marketref.NormalizeForHost(req.Input, s.cfg.MarketplaceHost)

	var (
		marketID string
		isEvent  bool
	)
	switch ref.Kind {
	case marketref.KindNumericID:
		marketID = ref.Value
	case marketref.KindSlug:
		id, err := s.resolver.Resolve(r.Context(), ref.Value, ref.IsEvent)
		if err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorResponse{
					Error: "could not resolve that link or slug; try pasting the numeric market id instead",
				})
				return
			}
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		marketID = id
		isEvent = ref.IsEvent
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ref.Reason})
		return
	}

	if err := s.coordinator.Pin(r.Context(), marketID); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("pinned market",
		zap.String("input", req.Input),
		zap.String("marketId", marketID),
		zap.Bool("isEvent", isEvent),
	)
	writeJSON(w, http.StatusOK, pinResponse{Status: "ok", MarketID: marketID, IsEvent: isEvent})
}

func (s *Server) handleUnpin(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["marketId"]
	if err := s.coordinator.Unpin(r.Context(), marketID); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.coordinator.Alerts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertId"]
	if err := s.coordinator.MarkAlertSeen(r.Context(), alertID); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["marketId"]
	snap, err := s.coordinator.MarketSnapshot(r.Context(), marketID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]
	event, err := s.coordinator.EventDetail(r.Context(), eventID)
	if err != nil {
		// No synthetic equivalent exists for events; failures propagate.
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Summarize())
}

// pushFrame is one websocket update for the popup.
type pushFrame struct {
	Type    string  `json:"type"`
	Summary Summary `json:"summary"`
}

// handleWebSocket streams summary frames so the popup can show the badge
// count without polling.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			frame := pushFrame{Type: "summary", Summary: s.coordinator.Summarize()}
			if err := conn.WriteJSON(frame); err != nil {
				return // client disconnected
			}
		}
	}
}
