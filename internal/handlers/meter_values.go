package handlers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
)

// NewMeterValuesHandler appends sampled values to the owning transaction.
// A missing transactionId is a tolerated no-op, not an error.
func NewMeterValuesHandler(ledger ChargeLedger, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.MeterValuesRequest](payload)
		if err != nil {
			return nil, err
		}

		if req.TransactionID == 0 {
			logger.Warn("meter values without transaction id", zap.String("station_id", stationID))
			return protocol.MeterValuesResponse{}, nil
		}

		if err := ledger.RecordMeterValues(ctx, stationID, req); err != nil {
			return nil, err
		}

		return protocol.MeterValuesResponse{}, nil
	}
}
