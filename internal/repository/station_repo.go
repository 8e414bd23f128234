package repository

import (
	"context"
	"database/sql"
	"time"

	"voltgate/internal/models"
)

// StationRepository manages charge point persistence.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Upsert stores or updates station metadata on BootNotification. Vendor,
// model and firmware stick to their previous values when a reboot omits them.
func (r *StationRepository) Upsert(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO charging_stations (station_id, vendor, model, firmware_version, status, last_heartbeat, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (station_id) DO UPDATE SET
			vendor = COALESCE(NULLIF(EXCLUDED.vendor, ''), charging_stations.vendor),
			model = COALESCE(NULLIF(EXCLUDED.model, ''), charging_stations.model),
			firmware_version = COALESCE(NULLIF(EXCLUDED.firmware_version, ''), charging_stations.firmware_version),
			status = EXCLUDED.status,
			last_heartbeat = EXCLUDED.last_heartbeat,
			updated_at = NOW()
	`
	if station.LastHeartbeat.IsZero() {
		station.LastHeartbeat = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		station.StationID,
		station.Vendor,
		station.Model,
		station.FirmwareVersion,
		station.Status,
		station.LastHeartbeat,
	)
	return err
}

// UpdateStatus changes station status.
func (r *StationRepository) UpdateStatus(ctx context.Context, stationID, status string) error {
	const query = `
		UPDATE charging_stations
		SET status = $2,
		    updated_at = NOW()
		WHERE station_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, stationID, status)
	return err
}

// Touch refreshes the heartbeat timestamp.
func (r *StationRepository) Touch(ctx context.Context, stationID string, at time.Time) error {
	const query = `
		UPDATE charging_stations
		SET last_heartbeat = $2,
		    updated_at = NOW()
		WHERE station_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, stationID, at)
	return err
}

// ListStations returns all stations ordered by station id, for observer
// snapshots.
func (r *StationRepository) ListStations(ctx context.Context) ([]models.Station, error) {
	const query = `
		SELECT station_id, vendor, model, firmware_version, status, last_heartbeat, created_at, updated_at
		FROM charging_stations
		ORDER BY station_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var s models.Station
		var heartbeat sql.NullTime
		if err := rows.Scan(
			&s.StationID,
			&s.Vendor,
			&s.Model,
			&s.FirmwareVersion,
			&s.Status,
			&heartbeat,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if heartbeat.Valid {
			s.LastHeartbeat = heartbeat.Time
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}
