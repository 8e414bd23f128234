package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voltgate/internal/metrics"
	"voltgate/internal/models"
)

// StationLister feeds observer snapshots from the durable store.
type StationLister interface {
	ListStations(ctx context.Context) ([]models.Station, error)
}

// observerConn is the slice of *websocket.Conn the hub writes through.
type observerConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type statusSnapshot struct {
	Type     string           `json:"type"`
	Stations []models.Station `json:"stations"`
}

// ObserverHub fans a full station snapshot out to dashboard observers after
// each protocol event. Push-everything, no diffing or back-pressure: the
// model assumes modest observer and station counts.
type ObserverHub struct {
	mu           sync.RWMutex
	observers    map[observerConn]struct{}
	lister       StationLister
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// NewObserverHub builds the hub. metrics may be nil.
func NewObserverHub(lister StationLister, writeTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *ObserverHub {
	return &ObserverHub{
		observers:    make(map[observerConn]struct{}),
		lister:       lister,
		writeTimeout: writeTimeout,
		logger:       logger,
		metrics:      m,
	}
}

// Register adds an observer and immediately pushes it the current snapshot.
func (h *ObserverHub) Register(ctx context.Context, conn observerConn) {
	h.mu.Lock()
	h.observers[conn] = struct{}{}
	count := len(h.observers)
	h.mu.Unlock()

	h.logger.Info("observer connected", zap.Int("observers", count))
	if h.metrics != nil {
		h.metrics.ObserversConnected.Set(float64(count))
	}
	h.Broadcast(ctx)
}

// Unregister drops an observer after its connection closed.
func (h *ObserverHub) Unregister(conn observerConn) {
	h.mu.Lock()
	delete(h.observers, conn)
	count := len(h.observers)
	h.mu.Unlock()

	h.logger.Info("observer disconnected", zap.Int("observers", count))
	if h.metrics != nil {
		h.metrics.ObserversConnected.Set(float64(count))
	}
}

// Broadcast pushes the full station list to every observer. Store failures
// are logged and swallowed; a dashboard miss is never escalated. Observers
// that fail to send are left for their own close handler to clean up.
// The fanout holds the exclusive lock: gorilla connections permit only one
// concurrent writer, and broadcasts fire from every station's read loop.
func (h *ObserverHub) Broadcast(ctx context.Context) {
	h.mu.RLock()
	empty := len(h.observers) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	stations, err := h.lister.ListStations(ctx)
	if err != nil {
		h.logger.Warn("failed to load stations for broadcast", zap.Error(err))
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}

	payload, err := json.Marshal(statusSnapshot{Type: "full_status", Stations: stations})
	if err != nil {
		h.logger.Error("failed to encode status snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.observers {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("failed to push snapshot to observer", zap.Error(err))
			if h.metrics != nil {
				h.metrics.BroadcastFailures.Inc()
			}
		}
	}
}
