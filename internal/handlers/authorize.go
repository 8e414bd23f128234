package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
)

// ocppAuthStatus maps internal decision statuses to the OCPP idTagInfo
// vocabulary; anything unexpected degrades to Invalid.
func ocppAuthStatus(status string) string {
	switch status {
	case protocol.AuthAccepted, protocol.AuthBlocked, protocol.AuthExpired, protocol.AuthInvalid:
		return status
	default:
		return protocol.AuthInvalid
	}
}

// NewAuthorizeHandler runs the authorization gate for a presented idTag.
func NewAuthorizeHandler(validator TagValidator, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.AuthorizeRequest](payload)
		if err != nil {
			return nil, err
		}

		decision, err := validator.Validate(ctx, req.IDTag, time.Now().UTC())
		if err != nil {
			return nil, err
		}

		logger.Info("authorize",
			zap.String("station_id", stationID),
			zap.String("id_tag", req.IDTag),
			zap.String("status", decision.Status),
			zap.String("reason", decision.Reason))

		return protocol.AuthorizeResponse{
			IDTagInfo: protocol.IDTagInfo{Status: ocppAuthStatus(decision.Status)},
		}, nil
	}
}
