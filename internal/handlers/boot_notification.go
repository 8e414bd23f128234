package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"voltgate/internal/models"
	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
)

// NewBootNotificationHandler upserts the station and communicates the
// heartbeat cadence.
func NewBootNotificationHandler(stations StationDirectory, heartbeatInterval int, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.BootNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		station := &models.Station{
			StationID:       stationID,
			Vendor:          req.ChargePointVendor,
			Model:           req.ChargePointModel,
			FirmwareVersion: req.FirmwareVersion,
			Status:          protocol.StatusAvailable,
			LastHeartbeat:   now,
		}

		if err := stations.Upsert(ctx, station); err != nil {
			logger.Error("failed to upsert station", zap.String("station_id", stationID), zap.Error(err))
			return nil, err
		}

		logger.Info("station booted",
			zap.String("station_id", stationID),
			zap.String("vendor", req.ChargePointVendor),
			zap.String("model", req.ChargePointModel))

		return protocol.BootNotificationResponse{
			Status:      protocol.RegistrationAccepted,
			CurrentTime: now,
			Interval:    heartbeatInterval,
		}, nil
	}
}
