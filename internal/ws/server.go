package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voltgate/internal/metrics"
	"voltgate/internal/ocpp/protocol"
)

// StationStatusWriter persists presence changes on disconnect.
type StationStatusWriter interface {
	UpdateStatus(ctx context.Context, stationID, status string) error
}

// Server upgrades HTTP connections to WebSockets for stations and
// dashboard observers.
type Server struct {
	manager      *Manager
	hub          *ObserverHub
	processor    MessageProcessor
	stations     StationStatusWriter
	writeTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	upgrader     websocket.Upgrader
}

// NewServer builds ws server. metrics may be nil.
func NewServer(manager *Manager, hub *ObserverHub, processor MessageProcessor, stations StationStatusWriter, writeTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Server {
	return &Server{
		manager:      manager,
		hub:          hub,
		processor:    processor,
		stations:     stations,
		writeTimeout: writeTimeout,
		logger:       logger,
		metrics:      m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{protocol.SubprotocolOCPP16, protocol.SubprotocolOCPP201},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is the HTTP handler for every WebSocket endpoint. The observer
// path is checked before station identity resolution.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == ObserverPath {
		s.handleObserver(w, r)
		return
	}
	s.handleStation(w, r)
}

func (s *Server) handleObserver(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("observer upgrade failed", zap.Error(err))
		return
	}

	s.hub.Register(r.Context(), conn)

	// Observers only listen; drain until the peer goes away.
	go func() {
		defer func() {
			s.hub.Unregister(conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	// Stations that ask for a subprotocol must ask for one we speak.
	if requested := websocket.Subprotocols(r); len(requested) > 0 {
		supported := false
		for _, p := range requested {
			if p == protocol.SubprotocolOCPP16 || p == protocol.SubprotocolOCPP201 {
				supported = true
				break
			}
		}
		if !supported {
			http.Error(w, "unsupported subprotocol", http.StatusBadRequest)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	identity, ok := ResolveStationIdentity(r.URL)
	if !ok {
		s.logger.Warn("connection without station identity", zap.String("path", r.URL.Path))
		deadline := time.Now().Add(s.writeTimeout)
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Station ID is required")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, deadline)
		_ = conn.Close()
		return
	}

	version := conn.Subprotocol()
	if version == "" {
		version = protocol.SubprotocolOCPP16
	}
	if identity.Version != "" {
		version = identity.Version
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := NewConnection(identity.StationID, version, conn, s.processor, s.writeTimeout, s.logger,
		func(ctx context.Context) {
			s.hub.Broadcast(ctx)
		},
		func(c *Connection) {
			s.onStationClose(c)
			cancel()
		})

	s.manager.Add(connection)
	if s.metrics != nil {
		s.metrics.StationsConnected.Set(float64(s.manager.Count()))
	}

	go connection.Start(ctx)
	s.logger.Info("station connected",
		zap.String("station_id", identity.StationID),
		zap.String("version", version))
}

// onStationClose tears down registry state and marks the station Offline.
// Best-effort: a failed persistence write is logged, not retried, and never
// blocks teardown.
func (s *Server) onStationClose(c *Connection) {
	if !s.manager.Remove(c) {
		// Entry already replaced by a newer connection for the same station.
		return
	}
	if s.metrics != nil {
		s.metrics.StationsConnected.Set(float64(s.manager.Count()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.stations.UpdateStatus(ctx, c.StationID(), protocol.StatusOffline); err != nil {
		s.logger.Warn("failed to mark station offline",
			zap.String("station_id", c.StationID()), zap.Error(err))
	}
	s.logger.Info("station disconnected", zap.String("station_id", c.StationID()))
	s.hub.Broadcast(ctx)
}
