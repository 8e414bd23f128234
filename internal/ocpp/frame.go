package ocpp

import (
	"encoding/json"
	"errors"
	"fmt"

	"voltgate/internal/ocpp/protocol"
)

// ErrMalformedFrame marks input that is not a well-formed OCPP-J array.
// The connection must survive it; the caller logs and drops the payload.
var ErrMalformedFrame = errors.New("ocpp: malformed frame")

// Frame is a parsed OCPP-J message. Action and Payload are set for CALL;
// ErrorCode/ErrorDescription/Details for CALLERROR; Payload for CALLRESULT.
type Frame struct {
	MessageType      int
	UniqueID         string
	Action           string
	Payload          json.RawMessage
	ErrorCode        string
	ErrorDescription string
	Details          json.RawMessage
}

// IsCall reports whether the frame is a station-initiated request.
func (f *Frame) IsCall() bool {
	return f.MessageType == protocol.MessageTypeCall
}

// Parser decodes raw JSON OCPP-J frames.
type Parser struct{}

// NewParser returns parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes raw bytes into a Frame. Any structural defect (non-array
// input, short array, wrong element types, unknown message type tag) yields
// ErrMalformedFrame.
func (p *Parser) Parse(data []byte) (*Frame, error) {
	var array []json.RawMessage
	if err := json.Unmarshal(data, &array); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(array) < 3 {
		return nil, fmt.Errorf("%w: %d elements", ErrMalformedFrame, len(array))
	}

	var msgType int
	if err := json.Unmarshal(array[0], &msgType); err != nil {
		return nil, fmt.Errorf("%w: message type tag: %v", ErrMalformedFrame, err)
	}

	frame := &Frame{MessageType: msgType}
	if err := json.Unmarshal(array[1], &frame.UniqueID); err != nil {
		return nil, fmt.Errorf("%w: unique id: %v", ErrMalformedFrame, err)
	}

	switch msgType {
	case protocol.MessageTypeCall:
		if len(array) < 4 {
			return nil, fmt.Errorf("%w: incomplete CALL", ErrMalformedFrame)
		}
		if err := json.Unmarshal(array[2], &frame.Action); err != nil {
			return nil, fmt.Errorf("%w: action: %v", ErrMalformedFrame, err)
		}
		frame.Payload = array[3]
	case protocol.MessageTypeCallResult:
		frame.Payload = array[2]
	case protocol.MessageTypeCallError:
		if len(array) < 5 {
			return nil, fmt.Errorf("%w: incomplete CALLERROR", ErrMalformedFrame)
		}
		if err := json.Unmarshal(array[2], &frame.ErrorCode); err != nil {
			return nil, fmt.Errorf("%w: error code: %v", ErrMalformedFrame, err)
		}
		if err := json.Unmarshal(array[3], &frame.ErrorDescription); err != nil {
			return nil, fmt.Errorf("%w: error description: %v", ErrMalformedFrame, err)
		}
		frame.Details = array[4]
	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrMalformedFrame, msgType)
	}

	return frame, nil
}

// BuildCallResult serializes a CALLRESULT frame.
func BuildCallResult(uniqueID string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	frame := []interface{}{protocol.MessageTypeCallResult, uniqueID, json.RawMessage(body)}
	return json.Marshal(frame)
}

// BuildCallError serializes a CALLERROR frame with empty details.
func BuildCallError(uniqueID, code, description string) ([]byte, error) {
	frame := []interface{}{protocol.MessageTypeCallError, uniqueID, code, description, map[string]string{}}
	return json.Marshal(frame)
}
