// Command stationsim is a minimal OCPP 1.6-J charge point simulator used to
// exercise the gateway end to end: it boots, reports status, authorizes a
// tag, runs one charging transaction with meter values, and then heartbeats
// until interrupted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voltgate/internal/logging"
	"voltgate/internal/ocpp/protocol"
)

type simulator struct {
	stationID string
	idTag     string
	conn      *websocket.Conn
	logger    *zap.Logger
}

func main() {
	var (
		serverURL = flag.String("server", "ws://localhost:8080", "gateway base URL")
		stationID = flag.String("station", "CP001", "station identifier")
		idTag     = flag.String("idtag", "TAG1", "identification tag to charge with")
	)
	flag.Parse()

	logger, err := logging.NewLogger("stationsim")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialer := websocket.Dialer{Subprotocols: []string{protocol.SubprotocolOCPP16}}
	endpoint := fmt.Sprintf("%s/ocpp/%s", *serverURL, *stationID)
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		logger.Fatal("failed to connect", zap.String("endpoint", endpoint), zap.Error(err))
	}
	defer conn.Close()

	sim := &simulator{stationID: *stationID, idTag: *idTag, conn: conn, logger: logger}
	if err := sim.run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
}

func (s *simulator) run(ctx context.Context) error {
	boot, err := s.call(protocol.ActionBootNotification, protocol.BootNotificationRequest{
		ChargePointVendor: "SimpleCharger Inc.",
		ChargePointModel:  "SC-1000",
		FirmwareVersion:   "1.4.2",
	})
	if err != nil {
		return err
	}
	var bootResp protocol.BootNotificationResponse
	if err := json.Unmarshal(boot, &bootResp); err != nil {
		return err
	}
	s.logger.Info("booted",
		zap.String("status", bootResp.Status),
		zap.Int("interval", bootResp.Interval))

	if _, err := s.call(protocol.ActionStatusNotification, protocol.StatusNotificationRequest{
		ConnectorID: 1, Status: protocol.StatusPreparing, ErrorCode: "NoError",
	}); err != nil {
		return err
	}

	authRaw, err := s.call(protocol.ActionAuthorize, protocol.AuthorizeRequest{IDTag: s.idTag})
	if err != nil {
		return err
	}
	var auth protocol.AuthorizeResponse
	if err := json.Unmarshal(authRaw, &auth); err != nil {
		return err
	}
	s.logger.Info("authorize", zap.String("status", auth.IDTagInfo.Status))

	startRaw, err := s.call(protocol.ActionStartTransaction, protocol.StartTransactionRequest{
		ConnectorID: 1,
		IDTag:       s.idTag,
		MeterStart:  100,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	var start protocol.StartTransactionResponse
	if err := json.Unmarshal(startRaw, &start); err != nil {
		return err
	}
	s.logger.Info("transaction started", zap.Int64("transaction_id", start.TransactionID))

	if start.TransactionID != 0 {
		if _, err := s.call(protocol.ActionStatusNotification, protocol.StatusNotificationRequest{
			ConnectorID: 1, Status: protocol.StatusCharging, ErrorCode: "NoError",
		}); err != nil {
			return err
		}

		for i := 1; i <= 3; i++ {
			meter := fmt.Sprintf("%d", 100+i*15)
			soc := fmt.Sprintf("%d", 20+i*10)
			if _, err := s.call(protocol.ActionMeterValues, map[string]interface{}{
				"connectorId":   1,
				"transactionId": start.TransactionID,
				"meterValue": []map[string]interface{}{{
					"timestamp": time.Now().UTC(),
					"sampledValue": []map[string]string{
						{"value": meter, "measurand": "Energy.Active.Import.Register", "unit": "Wh"},
						{"value": soc, "measurand": "SoC", "unit": "Percent"},
					},
				}},
			}); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}

		if _, err := s.call(protocol.ActionStopTransaction, protocol.StopTransactionRequest{
			TransactionID: start.TransactionID,
			IDTag:         s.idTag,
			MeterStop:     150,
			Timestamp:     time.Now().UTC(),
			Reason:        "Local",
		}); err != nil {
			return err
		}
		if _, err := s.call(protocol.ActionStatusNotification, protocol.StatusNotificationRequest{
			ConnectorID: 1, Status: protocol.StatusAvailable, ErrorCode: "NoError",
		}); err != nil {
			return err
		}
		s.logger.Info("transaction stopped", zap.Int64("transaction_id", start.TransactionID))
	}

	interval := time.Duration(bootResp.Interval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.call(protocol.ActionHeartbeat, struct{}{}); err != nil {
				return err
			}
		}
	}
}

// call sends a CALL frame and waits for the matching CALLRESULT payload.
func (s *simulator) call(action string, payload interface{}) (json.RawMessage, error) {
	messageID := uuid.NewString()
	frame := []interface{}{protocol.MessageTypeCall, messageID, action, payload}
	if err := s.conn.WriteJSON(frame); err != nil {
		return nil, fmt.Errorf("send %s: %w", action, err)
	}

	for {
		var reply []json.RawMessage
		if err := s.conn.ReadJSON(&reply); err != nil {
			return nil, fmt.Errorf("read %s reply: %w", action, err)
		}
		if len(reply) < 3 {
			continue
		}
		var msgType int
		var uniqueID string
		if err := json.Unmarshal(reply[0], &msgType); err != nil {
			continue
		}
		if err := json.Unmarshal(reply[1], &uniqueID); err != nil {
			continue
		}
		if uniqueID != messageID {
			continue
		}
		if msgType == protocol.MessageTypeCallError {
			var code, desc string
			_ = json.Unmarshal(reply[2], &code)
			if len(reply) > 3 {
				_ = json.Unmarshal(reply[3], &desc)
			}
			return nil, fmt.Errorf("%s rejected: %s: %s", action, code, desc)
		}
		return reply[2], nil
	}
}
