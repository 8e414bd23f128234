package repository

import (
	"context"
	"database/sql"

	"voltgate/internal/models"
)

// SessionRepository persists the billing-facing projection of transactions.
// Creation and completion both happen inside TransactionRepository, paired
// with the transaction write in one database transaction; this repository
// covers the rest of the lifecycle.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// RecordSoC back-fills socStart on first sight and always advances socEnd.
func (r *SessionRepository) RecordSoC(ctx context.Context, transactionID int64, soc float64) error {
	const query = `
		UPDATE charging_sessions
		SET soc_start = COALESCE(soc_start, $2),
		    soc_end = $2,
		    updated_at = NOW()
		WHERE transaction_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, transactionID, soc)
	return err
}

// FindByTransactionID returns the session paired with a transaction, or nil.
func (r *SessionRepository) FindByTransactionID(ctx context.Context, transactionID int64) (*models.Session, error) {
	const query = `
		SELECT session_id, transaction_id, station_id, connector_id, id_tag, start_time,
		       stop_time, duration_minutes, energy_wh, soc_start, soc_end, status, ocpi_sent, created_at, updated_at
		FROM charging_sessions
		WHERE transaction_id = $1
	`
	var s models.Session
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&s.SessionID,
		&s.TransactionID,
		&s.StationID,
		&s.ConnectorID,
		&s.IDTag,
		&s.StartTime,
		&s.StopTime,
		&s.DurationMinutes,
		&s.EnergyWh,
		&s.SocStart,
		&s.SocEnd,
		&s.Status,
		&s.OcpiSent,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
