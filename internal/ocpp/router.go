package ocpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voltgate/internal/metrics"
	"voltgate/internal/ocpp/protocol"
)

// HandlerFunc processes a CALL payload and returns the response body.
type HandlerFunc func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error)

// ErrNotImplemented is returned by Route for actions without a handler.
var ErrNotImplemented = errors.New("ocpp: action not implemented")

// Router dispatches OCPP actions to handlers.
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter returns router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Register attaches handler to action.
func (r *Router) Register(action string, handler HandlerFunc) {
	r.handlers[action] = handler
}

// Route executes the handler for the frame's action.
func (r *Router) Route(ctx context.Context, stationID string, frame *Frame) (interface{}, error) {
	handler, ok := r.handlers[frame.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, frame.Action)
	}
	return handler(ctx, stationID, frame.Payload)
}

// MessageLogRepository persists raw frames for audit.
type MessageLogRepository interface {
	Save(ctx context.Context, stationID, direction, action string, payload []byte) error
}

// Processor ties together parsing, routing, and response encoding.
type Processor struct {
	parser  *Parser
	router  *Router
	logRepo MessageLogRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewProcessor builds Processor. logRepo and m may be nil.
func NewProcessor(parser *Parser, router *Router, logRepo MessageLogRepository, logger *zap.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		parser:  parser,
		router:  router,
		logRepo: logRepo,
		logger:  logger,
		metrics: m,
	}
}

// Process handles one raw inbound message and returns the response frame
// bytes, if any. routed reports whether a CALL was dispatched (successfully
// or as a CALLERROR) so the caller knows to notify observers. A malformed
// frame returns an error and no response: the message id may be
// unrecoverable, so the station gets no reply rather than a guessed one.
// Non-CALL frames are dropped; the gateway never initiates calls, so there
// is nothing to correlate a CALLRESULT or CALLERROR against.
func (p *Processor) Process(ctx context.Context, stationID string, raw []byte) (response []byte, routed bool, err error) {
	frame, err := p.parser.Parse(raw)
	if err != nil {
		if p.metrics != nil {
			p.metrics.MalformedFrames.Inc()
		}
		return nil, false, err
	}

	if !frame.IsCall() {
		p.logger.Info("dropping non-CALL frame",
			zap.String("station_id", stationID),
			zap.Int("message_type", frame.MessageType),
			zap.String("unique_id", frame.UniqueID))
		return nil, false, nil
	}

	if p.logRepo != nil {
		if logErr := p.logRepo.Save(ctx, stationID, "incoming", frame.Action, raw); logErr != nil {
			p.logger.Warn("failed to log inbound frame", zap.String("station_id", stationID), zap.Error(logErr))
		}
	}

	responsePayload, err := p.router.Route(ctx, stationID, frame)
	if err != nil {
		code := protocol.ErrorCodeInternalError
		outcome := "handler_error"
		if errors.Is(err, ErrNotImplemented) {
			code = protocol.ErrorCodeNotImplemented
			outcome = "not_implemented"
			p.logger.Warn("no handler for action",
				zap.String("station_id", stationID),
				zap.String("action", frame.Action))
		} else {
			p.logger.Warn("ocpp handler failed",
				zap.String("station_id", stationID),
				zap.String("action", frame.Action),
				zap.Error(err))
		}
		if p.metrics != nil {
			p.metrics.MessagesTotal.WithLabelValues(frame.Action, outcome).Inc()
		}
		errFrame, buildErr := BuildCallError(frame.UniqueID, code, err.Error())
		if buildErr != nil {
			return nil, true, buildErr
		}
		if p.logRepo != nil {
			if logErr := p.logRepo.Save(ctx, stationID, "outgoing", frame.Action, errFrame); logErr != nil {
				p.logger.Warn("failed to log outbound frame", zap.String("station_id", stationID), zap.Error(logErr))
			}
		}
		return errFrame, true, nil
	}

	respBytes, err := BuildCallResult(frame.UniqueID, responsePayload)
	if err != nil {
		p.logger.Error("encode ocpp response failed",
			zap.String("station_id", stationID),
			zap.String("action", frame.Action),
			zap.Error(err))
		return nil, true, err
	}

	if p.logRepo != nil {
		if logErr := p.logRepo.Save(ctx, stationID, "outgoing", frame.Action, respBytes); logErr != nil {
			p.logger.Warn("failed to log outbound frame", zap.String("station_id", stationID), zap.Error(logErr))
		}
	}
	if p.metrics != nil {
		p.metrics.MessagesTotal.WithLabelValues(frame.Action, "ok").Inc()
	}

	return respBytes, true, nil
}

// Decode convenience helper for handlers.
func Decode[T any](payload json.RawMessage) (T, error) {
	var target T
	if err := json.Unmarshal(payload, &target); err != nil {
		var zero T
		return zero, err
	}
	return target, nil
}
