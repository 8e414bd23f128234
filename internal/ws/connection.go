package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voltgate/internal/ocpp"
)

const (
	maxMessageSize = 1024 * 1024
	readWait       = 90 * time.Second
)

// MessageProcessor handles raw OCPP messages. routed reports whether a CALL
// frame was dispatched, which is the trigger for observer notification.
type MessageProcessor interface {
	Process(ctx context.Context, stationID string, raw []byte) (response []byte, routed bool, err error)
}

// Connection represents one live station WebSocket connection. Inbound
// frames are processed strictly sequentially: the read loop does not pick up
// frame N+1 until frame N's handler finished and its response was written.
type Connection struct {
	stationID    string
	version      string
	ws           *websocket.Conn
	processor    MessageProcessor
	writeTimeout time.Duration
	logger       *zap.Logger

	writeMu sync.Mutex

	onRouted func(ctx context.Context)
	onClose  func(c *Connection)

	closeOnce sync.Once
}

// NewConnection builds connection wrapper.
func NewConnection(stationID, version string, conn *websocket.Conn, processor MessageProcessor, writeTimeout time.Duration, logger *zap.Logger, onRouted func(context.Context), onClose func(*Connection)) *Connection {
	return &Connection{
		stationID:    stationID,
		version:      version,
		ws:           conn,
		processor:    processor,
		writeTimeout: writeTimeout,
		logger:       logger,
		onRouted:     onRouted,
		onClose:      onClose,
	}
}

// StationID returns identifier.
func (c *Connection) StationID() string {
	return c.stationID
}

// Version returns the negotiated protocol version.
func (c *Connection) Version() string {
	return c.version
}

// Start runs the read loop until the connection closes.
func (c *Connection) Start(ctx context.Context) {
	defer c.cleanup()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("connection read closed", zap.String("station_id", c.stationID), zap.Error(err))
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))

		response, routed, err := c.processor.Process(ctx, c.stationID, message)
		if err != nil {
			// Malformed input gets no reply; the connection stays open.
			if errors.Is(err, ocpp.ErrMalformedFrame) {
				c.logger.Warn("dropping malformed frame",
					zap.String("station_id", c.stationID),
					zap.Error(err))
			} else {
				c.logger.Warn("failed to process message",
					zap.String("station_id", c.stationID),
					zap.Error(err))
			}
			continue
		}

		if response != nil {
			if err := c.WriteText(response); err != nil {
				c.logger.Warn("failed to write response", zap.String("station_id", c.stationID), zap.Error(err))
				return
			}
		}

		if routed && c.onRouted != nil {
			c.onRouted(ctx)
		}
	}
}

// WriteText writes a text frame under the connection's write lock.
func (c *Connection) WriteText(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

// Ping sends a keepalive ping.
func (c *Connection) Ping() error {
	return c.write(websocket.PingMessage, nil)
}

func (c *Connection) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

// Close tears the connection down; safe to call more than once.
func (c *Connection) Close() {
	c.cleanup()
}

func (c *Connection) cleanup() {
	c.closeOnce.Do(func() {
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}
