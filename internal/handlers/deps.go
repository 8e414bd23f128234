package handlers

import (
	"context"
	"time"

	"voltgate/internal/models"
	"voltgate/internal/ocpp/protocol"
	"voltgate/internal/service"
)

// StationDirectory is the slice of station persistence the handlers need.
type StationDirectory interface {
	Upsert(ctx context.Context, station *models.Station) error
	UpdateStatus(ctx context.Context, stationID, status string) error
	Touch(ctx context.Context, stationID string, at time.Time) error
}

// TagValidator is the authorization gate.
type TagValidator interface {
	Validate(ctx context.Context, idTag string, at time.Time) (service.Decision, error)
}

// ChargeLedger drives the transaction/session lifecycle.
type ChargeLedger interface {
	StartCharge(ctx context.Context, stationID string, req protocol.StartTransactionRequest) (*models.Transaction, *models.Session, error)
	StopCharge(ctx context.Context, stationID string, req protocol.StopTransactionRequest) (bool, error)
	RecordMeterValues(ctx context.Context, stationID string, req protocol.MeterValuesRequest) error
}
