package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"voltgate/internal/ocpp"
	"voltgate/internal/ocpp/protocol"
)

// NewStartTransactionHandler validates the idTag and opens a
// transaction/session pair. Rejections answer with transactionId 0 and no
// records are created.
func NewStartTransactionHandler(validator TagValidator, ledger ChargeLedger, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StartTransactionRequest](payload)
		if err != nil {
			return nil, err
		}

		decision, err := validator.Validate(ctx, req.IDTag, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if !decision.OK {
			logger.Info("start transaction rejected",
				zap.String("station_id", stationID),
				zap.String("id_tag", req.IDTag),
				zap.String("status", decision.Status),
				zap.String("reason", decision.Reason))
			return protocol.StartTransactionResponse{
				TransactionID: 0,
				IDTagInfo:     protocol.IDTagInfo{Status: ocppAuthStatus(decision.Status)},
			}, nil
		}

		tx, sess, err := ledger.StartCharge(ctx, stationID, req)
		if err != nil {
			return nil, err
		}

		logger.Info("start transaction accepted",
			zap.String("station_id", stationID),
			zap.String("id_tag", req.IDTag),
			zap.Int64("transaction_id", tx.TransactionID),
			zap.String("session_id", sess.SessionID))

		return protocol.StartTransactionResponse{
			TransactionID: tx.TransactionID,
			IDTagInfo:     protocol.IDTagInfo{Status: protocol.AuthAccepted},
		}, nil
	}
}
