package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voltgate/internal/models"
)

// TransactionRepository persists protocol-level transactions. Meter values
// live in a JSONB column appended in arrival order.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository returns repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateWithSession inserts the transaction and its paired billing session in
// a single database transaction so an orphaned half can never exist. The
// unique constraints on transaction_id reject a minted-id collision.
func (r *TransactionRepository) CreateWithSession(ctx context.Context, tx *models.Transaction, sess *models.Session) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	const insertTx = `
		INSERT INTO transactions (transaction_id, station_id, connector_id, id_tag, meter_start, start_timestamp, meter_values, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '[]'::jsonb, $7, NOW(), NOW())
	`
	if _, err := dbTx.ExecContext(ctx, insertTx,
		tx.TransactionID,
		tx.StationID,
		tx.ConnectorID,
		tx.IDTag,
		tx.MeterStart,
		tx.StartTimestamp,
		tx.Status,
	); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	const insertSession = `
		INSERT INTO charging_sessions (session_id, transaction_id, station_id, connector_id, id_tag, start_time, status, ocpi_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW(), NOW())
	`
	if _, err := dbTx.ExecContext(ctx, insertSession,
		sess.SessionID,
		sess.TransactionID,
		sess.StationID,
		sess.ConnectorID,
		sess.IDTag,
		sess.StartTime,
		sess.Status,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return dbTx.Commit()
}

// Get returns the transaction for an id, or nil when unknown.
func (r *TransactionRepository) Get(ctx context.Context, transactionID int64) (*models.Transaction, error) {
	const query = `
		SELECT transaction_id, station_id, connector_id, id_tag, meter_start, start_timestamp,
		       meter_stop, stop_timestamp, COALESCE(stop_reason, ''), meter_values, status, created_at, updated_at
		FROM transactions
		WHERE transaction_id = $1
	`
	var t models.Transaction
	var meterValues []byte
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&t.TransactionID,
		&t.StationID,
		&t.ConnectorID,
		&t.IDTag,
		&t.MeterStart,
		&t.StartTimestamp,
		&t.MeterStop,
		&t.StopTimestamp,
		&t.StopReason,
		&meterValues,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(meterValues) > 0 {
		if err := json.Unmarshal(meterValues, &t.MeterValues); err != nil {
			return nil, fmt.Errorf("decode meter values: %w", err)
		}
	}
	return &t, nil
}

// StopWithSession finalizes an active transaction and completes its paired
// session in one database transaction, so the two projections cannot diverge
// when a write fails mid-way. Returns false when the transaction was already
// stopped or does not exist; nothing is mutated in that case, so a repeated
// StopTransaction never rewrites the recorded stop fields.
func (r *TransactionRepository) StopWithSession(ctx context.Context, transactionID, meterStop int64, stopTime time.Time, reason string, durationMinutes, energyWh int64) (bool, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer dbTx.Rollback()

	const stopTx = `
		UPDATE transactions
		SET meter_stop = $2,
		    stop_timestamp = $3,
		    stop_reason = $4,
		    status = $5,
		    updated_at = NOW()
		WHERE transaction_id = $1 AND status = $6
	`
	result, err := dbTx.ExecContext(ctx, stopTx, transactionID, meterStop, stopTime, reason,
		models.TransactionStatusStopped, models.TransactionStatusActive)
	if err != nil {
		return false, fmt.Errorf("stop transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	const completeSession = `
		UPDATE charging_sessions
		SET stop_time = $2,
		    duration_minutes = $3,
		    energy_wh = $4,
		    status = $5,
		    updated_at = NOW()
		WHERE transaction_id = $1
	`
	if _, err := dbTx.ExecContext(ctx, completeSession, transactionID, stopTime, durationMinutes, energyWh,
		models.SessionStatusCompleted); err != nil {
		return false, fmt.Errorf("complete session: %w", err)
	}

	return true, dbTx.Commit()
}

// AppendMeterValues appends a batch to the transaction's meter value
// sequence, preserving arrival order. Returns false for unknown ids.
func (r *TransactionRepository) AppendMeterValues(ctx context.Context, transactionID int64, batch []models.MeterValue) (bool, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return false, err
	}
	const query = `
		UPDATE transactions
		SET meter_values = meter_values || $2::jsonb,
		    updated_at = NOW()
		WHERE transaction_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, transactionID, payload)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
