package protocol

// OCPP-J message type tags.
const (
	MessageTypeCall       = 2
	MessageTypeCallResult = 3
	MessageTypeCallError  = 4
)

// Actions handled by the gateway.
const (
	ActionBootNotification   = "BootNotification"
	ActionHeartbeat          = "Heartbeat"
	ActionStatusNotification = "StatusNotification"
	ActionAuthorize          = "Authorize"
	ActionStartTransaction   = "StartTransaction"
	ActionStopTransaction    = "StopTransaction"
	ActionMeterValues        = "MeterValues"
)

// CALLERROR codes emitted by the router.
const (
	ErrorCodeNotImplemented = "NotImplemented"
	ErrorCodeInternalError  = "InternalError"
)

// Registration status values.
const (
	RegistrationAccepted = "Accepted"
	RegistrationRejected = "Rejected"
)

// idTagInfo authorization status values.
const (
	AuthAccepted = "Accepted"
	AuthBlocked  = "Blocked"
	AuthExpired  = "Expired"
	AuthInvalid  = "Invalid"
)

// Station status values (OCPP 1.6 ChargePointStatus plus Offline, which the
// gateway sets itself on disconnect).
const (
	StatusAvailable     = "Available"
	StatusPreparing     = "Preparing"
	StatusCharging      = "Charging"
	StatusSuspendedEV   = "SuspendedEV"
	StatusSuspendedEVSE = "SuspendedEVSE"
	StatusFinishing     = "Finishing"
	StatusReserved      = "Reserved"
	StatusUnavailable   = "Unavailable"
	StatusFaulted       = "Faulted"
	StatusOffline       = "Offline"
)

// MeasurandSoC is the state-of-charge measurand scanned out of MeterValues.
const MeasurandSoC = "SoC"

// Subprotocols accepted during the WebSocket handshake.
const (
	SubprotocolOCPP16  = "ocpp1.6"
	SubprotocolOCPP201 = "ocpp2.0.1"
)
