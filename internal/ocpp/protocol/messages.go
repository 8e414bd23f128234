package protocol

import (
	"time"

	"voltgate/internal/models"
)

// BootNotificationRequest carries station identity fields (OCPP 1.6 subset).
type BootNotificationRequest struct {
	ChargePointVendor string `json:"chargePointVendor"`
	ChargePointModel  string `json:"chargePointModel"`
	ChargePointSerial string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerial   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion   string `json:"firmwareVersion,omitempty"`
}

// BootNotificationResponse tells the station its heartbeat cadence.
type BootNotificationResponse struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"currentTime"`
	Interval    int       `json:"interval"`
}

// HeartbeatResponse returns server time.
type HeartbeatResponse struct {
	CurrentTime time.Time `json:"currentTime"`
}

// StatusNotificationRequest reports a connector status change.
type StatusNotificationRequest struct {
	ConnectorID int       `json:"connectorId"`
	Status      string    `json:"status"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Info        string    `json:"info,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	VendorID    string    `json:"vendorId,omitempty"`
}

// StatusNotificationResponse is an empty ack.
type StatusNotificationResponse struct{}

// IDTagInfo is the authorization verdict embedded in several responses.
type IDTagInfo struct {
	Status string `json:"status"`
}

// AuthorizeRequest presents an idTag for validation.
type AuthorizeRequest struct {
	IDTag string `json:"idTag"`
}

// AuthorizeResponse wraps the verdict.
type AuthorizeResponse struct {
	IDTagInfo IDTagInfo `json:"idTagInfo"`
}

// StartTransactionRequest opens a charge delivery.
type StartTransactionRequest struct {
	ConnectorID   int       `json:"connectorId"`
	IDTag         string    `json:"idTag"`
	MeterStart    int64     `json:"meterStart"`
	ReservationID int       `json:"reservationId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// StartTransactionResponse returns the CSMS-minted transaction id.
// TransactionID is zero when authorization was rejected.
type StartTransactionResponse struct {
	TransactionID int64     `json:"transactionId"`
	IDTagInfo     IDTagInfo `json:"idTagInfo"`
}

// StopTransactionRequest closes a charge delivery.
type StopTransactionRequest struct {
	TransactionID int64     `json:"transactionId"`
	IDTag         string    `json:"idTag,omitempty"`
	MeterStop     int64     `json:"meterStop"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason,omitempty"`
}

// StopTransactionResponse acknowledges the stop.
type StopTransactionResponse struct {
	IDTagInfo IDTagInfo `json:"idTagInfo"`
}

// MeterValuesRequest streams sampled meter data for a transaction.
type MeterValuesRequest struct {
	ConnectorID   int                 `json:"connectorId"`
	TransactionID int64               `json:"transactionId,omitempty"`
	MeterValue    []models.MeterValue `json:"meterValue"`
}

// MeterValuesResponse is an empty ack.
type MeterValuesResponse struct{}
