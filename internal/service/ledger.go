package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voltgate/internal/models"
	"voltgate/internal/ocpp/protocol"
)

// TransactionStore persists protocol-level transactions. Creation and stop
// both write the transaction and its paired session in one database
// transaction; the two projections never diverge.
type TransactionStore interface {
	CreateWithSession(ctx context.Context, tx *models.Transaction, sess *models.Session) error
	Get(ctx context.Context, transactionID int64) (*models.Transaction, error)
	StopWithSession(ctx context.Context, transactionID, meterStop int64, stopTime time.Time, reason string, durationMinutes, energyWh int64) (bool, error)
	AppendMeterValues(ctx context.Context, transactionID int64, batch []models.MeterValue) (bool, error)
}

// SessionStore persists the billing projection.
type SessionStore interface {
	RecordSoC(ctx context.Context, transactionID int64, soc float64) error
}

// ChargeCache mirrors in-progress charges for external readers. Optional.
type ChargeCache interface {
	Save(ctx context.Context, charge ActiveCharge) error
	Delete(ctx context.Context, transactionID int64) error
}

// Ledger owns the Transaction/Session lifecycle driven by
// StartTransaction/StopTransaction/MeterValues events. The durable store's
// unique constraints are the arbiter for id collisions: a clashing mint
// fails the whole start rather than silently reusing an id.
type Ledger struct {
	transactions TransactionStore
	sessions     SessionStore
	cache        ChargeCache
	logger       *zap.Logger

	newTransactionID func() int64
	newSessionID     func() string
}

// NewLedger returns the ledger. cache may be nil.
func NewLedger(transactions TransactionStore, sessions SessionStore, cache ChargeCache, logger *zap.Logger) *Ledger {
	return &Ledger{
		transactions:     transactions,
		sessions:         sessions,
		cache:            cache,
		logger:           logger,
		newTransactionID: mintTransactionID,
		newSessionID:     uuid.NewString,
	}
}

// mintTransactionID produces a time-based id with a random suffix. Uniqueness
// is enforced by the store, not here.
func mintTransactionID() int64 {
	return time.Now().UnixMilli() + int64(rand.Intn(1000))
}

// StartCharge mints a transaction id and an external session id and records
// both projections atomically.
func (l *Ledger) StartCharge(ctx context.Context, stationID string, req protocol.StartTransactionRequest) (*models.Transaction, *models.Session, error) {
	startTime := req.Timestamp
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}

	tx := &models.Transaction{
		TransactionID:  l.newTransactionID(),
		StationID:      stationID,
		ConnectorID:    req.ConnectorID,
		IDTag:          req.IDTag,
		MeterStart:     req.MeterStart,
		StartTimestamp: startTime,
		MeterValues:    []models.MeterValue{},
		Status:         models.TransactionStatusActive,
	}
	sess := &models.Session{
		SessionID:     l.newSessionID(),
		TransactionID: tx.TransactionID,
		StationID:     stationID,
		ConnectorID:   req.ConnectorID,
		IDTag:         req.IDTag,
		StartTime:     startTime,
		Status:        models.SessionStatusInProgress,
	}

	if err := l.transactions.CreateWithSession(ctx, tx, sess); err != nil {
		return nil, nil, fmt.Errorf("start charge: %w", err)
	}

	if l.cache != nil {
		if err := l.cache.Save(ctx, ActiveCharge{
			TransactionID: tx.TransactionID,
			SessionID:     sess.SessionID,
			StationID:     stationID,
			ConnectorID:   req.ConnectorID,
			IDTag:         req.IDTag,
			MeterStart:    req.MeterStart,
		}); err != nil {
			l.logger.Warn("failed to cache active charge",
				zap.Int64("transaction_id", tx.TransactionID), zap.Error(err))
		}
	}

	return tx, sess, nil
}

// StopCharge finalizes a transaction and completes its session in one store
// write. Returns found=false for unknown transaction ids; the caller acks
// anyway. A second stop on an already-stopped transaction re-acks without
// touching the recorded stop fields, and a failed stop leaves both
// projections untouched so the station's retry lands on a clean state.
func (l *Ledger) StopCharge(ctx context.Context, stationID string, req protocol.StopTransactionRequest) (found bool, err error) {
	tx, err := l.transactions.Get(ctx, req.TransactionID)
	if err != nil {
		return false, fmt.Errorf("stop charge: %w", err)
	}
	if tx == nil {
		return false, nil
	}

	stopTime := req.Timestamp
	if stopTime.IsZero() {
		stopTime = time.Now().UTC()
	}

	duration := durationMinutes(tx.StartTimestamp, stopTime)
	energy := req.MeterStop - tx.MeterStart
	if energy < 0 {
		energy = 0
	}

	stopped, err := l.transactions.StopWithSession(ctx, req.TransactionID, req.MeterStop, stopTime, req.Reason, duration, energy)
	if err != nil {
		return true, fmt.Errorf("stop charge: %w", err)
	}
	if !stopped {
		l.logger.Info("transaction already stopped, re-acking",
			zap.String("station_id", stationID),
			zap.Int64("transaction_id", req.TransactionID))
		return true, nil
	}

	if l.cache != nil {
		if err := l.cache.Delete(ctx, req.TransactionID); err != nil {
			l.logger.Warn("failed to evict active charge",
				zap.Int64("transaction_id", req.TransactionID), zap.Error(err))
		}
	}

	return true, nil
}

// RecordMeterValues appends a sampled-value batch to the transaction and
// advances the session's state-of-charge fields. Unknown transaction ids are
// a tolerated no-op.
func (l *Ledger) RecordMeterValues(ctx context.Context, stationID string, req protocol.MeterValuesRequest) error {
	if req.TransactionID == 0 || len(req.MeterValue) == 0 {
		return nil
	}

	found, err := l.transactions.AppendMeterValues(ctx, req.TransactionID, req.MeterValue)
	if err != nil {
		return fmt.Errorf("append meter values: %w", err)
	}
	if !found {
		l.logger.Warn("meter values for unknown transaction",
			zap.String("station_id", stationID),
			zap.Int64("transaction_id", req.TransactionID))
		return nil
	}

	if soc, ok := latestSoC(req.MeterValue); ok {
		if err := l.sessions.RecordSoC(ctx, req.TransactionID, soc); err != nil {
			return fmt.Errorf("record soc: %w", err)
		}
	}

	return nil
}

// durationMinutes is round((stop-start)/60000), clamped to zero.
func durationMinutes(start, stop time.Time) int64 {
	minutes := int64(math.Round(float64(stop.Sub(start).Milliseconds()) / 60000.0))
	if minutes < 0 {
		return 0
	}
	return minutes
}

// latestSoC scans a batch for the last parseable state-of-charge sample.
func latestSoC(batch []models.MeterValue) (float64, bool) {
	var soc float64
	var seen bool
	for _, mv := range batch {
		for _, sv := range mv.SampledValue {
			if sv.Measurand != protocol.MeasurandSoC {
				continue
			}
			value, err := strconv.ParseFloat(sv.Value, 64)
			if err != nil {
				continue
			}
			soc = value
			seen = true
		}
	}
	return soc, seen
}
