package handlers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
)

// NewStatusNotificationHandler mirrors the reported connector status onto
// the station record. Single-connector simplification: connector status is
// station status.
func NewStatusNotificationHandler(stations StationDirectory, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StatusNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		status := req.Status
		if status == "" {
			status = protocol.StatusAvailable
		}

		if err := stations.UpdateStatus(ctx, stationID, status); err != nil {
			logger.Warn("failed to update station status", zap.String("station_id", stationID), zap.Error(err))
			return nil, err
		}

		logger.Info("station status changed",
			zap.String("station_id", stationID),
			zap.Int("connector_id", req.ConnectorID),
			zap.String("status", status))

		return protocol.StatusNotificationResponse{}, nil
	}
}
