package handlers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
)

// NewStopTransactionHandler finalizes a transaction. Unknown transaction
// ids are acked anyway so the station is never left retrying a stop it
// already believes succeeded.
func NewStopTransactionHandler(ledger ChargeLedger, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StopTransactionRequest](payload)
		if err != nil {
			return nil, err
		}

		found, err := ledger.StopCharge(ctx, stationID, req)
		if err != nil {
			return nil, err
		}
		if !found {
			logger.Warn("stop transaction for unknown id",
				zap.String("station_id", stationID),
				zap.Int64("transaction_id", req.TransactionID))
		} else {
			logger.Info("stop transaction",
				zap.String("station_id", stationID),
				zap.Int64("transaction_id", req.TransactionID),
				zap.String("reason", req.Reason))
		}

		return protocol.StopTransactionResponse{
			IDTagInfo: protocol.IDTagInfo{Status: protocol.AuthAccepted},
		}, nil
	}
}
