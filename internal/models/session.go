package models

import "time"

// Session status values.
const (
	SessionStatusInProgress = "IN_PROGRESS"
	SessionStatusCompleted  = "COMPLETED"
)

// Session is the billing-facing projection of a Transaction. SessionID is a
// separately generated UUID meant for external interchange (OCPI); OcpiSent
// is flipped by the administrative surface, never by the gateway.
type Session struct {
	SessionID       string     `db:"session_id" json:"sessionId"`
	TransactionID   int64      `db:"transaction_id" json:"transactionId"`
	StationID       string     `db:"station_id" json:"stationId"`
	ConnectorID     int        `db:"connector_id" json:"connectorId"`
	IDTag           string     `db:"id_tag" json:"idTag"`
	StartTime       time.Time  `db:"start_time" json:"startTime"`
	StopTime        *time.Time `db:"stop_time" json:"stopTime,omitempty"`
	DurationMinutes *int64     `db:"duration_minutes" json:"durationMinutes,omitempty"`
	EnergyWh        *int64     `db:"energy_wh" json:"energyWh,omitempty"`
	SocStart        *float64   `db:"soc_start" json:"socStart,omitempty"`
	SocEnd          *float64   `db:"soc_end" json:"socEnd,omitempty"`
	Status          string     `db:"status" json:"status"`
	OcpiSent        bool       `db:"ocpi_sent" json:"ocpiSent"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}
