package models

import "time"

// Station represents a charge point known to the CSMS. The database row is
// the source of truth; the live registry only tracks connection handles.
type Station struct {
	StationID       string    `db:"station_id" json:"stationId"`
	Vendor          string    `db:"vendor" json:"chargePointVendor,omitempty"`
	Model           string    `db:"model" json:"chargePointModel,omitempty"`
	FirmwareVersion string    `db:"firmware_version" json:"firmwareVersion,omitempty"`
	Status          string    `db:"status" json:"status"`
	LastHeartbeat   time.Time `db:"last_heartbeat" json:"lastHeartbeat"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}
