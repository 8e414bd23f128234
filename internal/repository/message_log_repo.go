package repository

import (
	"context"
	"database/sql"
)

// MessageLogRepository stores raw OCPP frames for audit.
type MessageLogRepository struct {
	db *sql.DB
}

// NewMessageLogRepository ctor.
func NewMessageLogRepository(db *sql.DB) *MessageLogRepository {
	return &MessageLogRepository{db: db}
}

// Save stores one frame with its direction and action.
func (r *MessageLogRepository) Save(ctx context.Context, stationID, direction, action string, payload []byte) error {
	const query = `
		INSERT INTO ocpp_messages (station_id, direction, action, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.ExecContext(ctx, query, stationID, direction, action, payload)
	return err
}
