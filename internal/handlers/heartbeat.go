package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
)

// NewHeartbeatHandler refreshes the station's heartbeat timestamp and
// returns server time.
func NewHeartbeatHandler(stations StationDirectory, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		now := time.Now().UTC()
		if err := stations.Touch(ctx, stationID, now); err != nil {
			logger.Warn("failed to update heartbeat", zap.String("station_id", stationID), zap.Error(err))
			return nil, err
		}
		return protocol.HeartbeatResponse{CurrentTime: now}, nil
	}
}
