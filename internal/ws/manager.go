package ws

import (
	"context"
	"sync"
	"time"
)

// Manager is the live station registry: station id to connection handle.
// It tracks handles only; station attributes live in the durable store.
type Manager struct {
	mu           sync.RWMutex
	connections  map[string]*Connection
	pingInterval time.Duration
}

// NewManager builds connection registry.
func NewManager(pingInterval time.Duration) *Manager {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Manager{
		connections:  make(map[string]*Connection),
		pingInterval: pingInterval,
	}
}

// Add registers a connection. A later connection with the same station id
// silently replaces the former entry (last writer wins).
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.StationID()] = conn
}

// Remove unregisters a connection, but only if it still owns the entry; a
// replaced connection closing late must not evict its successor.
func (m *Manager) Remove(conn *Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.connections[conn.StationID()]
	if !ok || current != conn {
		return false
	}
	delete(m.connections, conn.StationID())
	return true
}

// Get returns the live connection for a station id.
func (m *Manager) Get(stationID string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[stationID]
	return conn, ok
}

// Count returns the number of live station connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Start begins the keepalive ping loop.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			conns := make([]*Connection, 0, len(m.connections))
			for _, conn := range m.connections {
				conns = append(conns, conn)
			}
			m.mu.RUnlock()
			for _, conn := range conns {
				_ = conn.Ping()
			}
		}
	}
}
