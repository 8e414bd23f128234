package models

import "time"

// Transaction status values.
const (
	TransactionStatusActive  = "Active"
	TransactionStatusStopped = "Stopped"
)

// SampledValue is a single OCPP 1.6 sampled value inside a meter value batch.
type SampledValue struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Format    string `json:"format,omitempty"`
	Measurand string `json:"measurand,omitempty"`
	Location  string `json:"location,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// MeterValue is a timestamped batch of sampled values.
type MeterValue struct {
	Timestamp    time.Time      `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

// Transaction is the protocol-level record of one charge delivery, keyed by a
// CSMS-minted numeric id. MeterValues is append-only, ordered by arrival.
type Transaction struct {
	TransactionID  int64        `db:"transaction_id" json:"transactionId"`
	StationID      string       `db:"station_id" json:"stationId"`
	ConnectorID    int          `db:"connector_id" json:"connectorId"`
	IDTag          string       `db:"id_tag" json:"idTag"`
	MeterStart     int64        `db:"meter_start" json:"meterStart"`
	StartTimestamp time.Time    `db:"start_timestamp" json:"startTimestamp"`
	MeterStop      *int64       `db:"meter_stop" json:"meterStop,omitempty"`
	StopTimestamp  *time.Time   `db:"stop_timestamp" json:"stopTimestamp,omitempty"`
	StopReason     string       `db:"stop_reason" json:"stopReason,omitempty"`
	MeterValues    []MeterValue `db:"meter_values" json:"meterValues"`
	Status         string       `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
}
