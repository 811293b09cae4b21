package gamestream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType names a category of event delivered over the stream.
type EventType string

const (
	EventConnected EventType = "connected"
	EventGameState EventType = "gameState"
	EventGameWon   EventType = "gameWon"
	EventError     EventType = "error"
)

// EventTypes lists the event types the Manager dispatches, in a stable order.
var EventTypes = []EventType{EventConnected, EventGameState, EventGameWon, EventError}

// DefaultErrorMessage is used when an error event carries no usable data.
const DefaultErrorMessage = "Connection error"

var ErrUnknownEventType = errors.New("unknown event type")

// Payload is the decoded data of a single event. The set of implementations is
// closed: ConnectedPayload, GameStatePayload, GameWonPayload and ErrorPayload.
type Payload interface {
	EventType() EventType
	payload()
}

// ConnectedPayload acknowledges that the server accepted the stream.
type ConnectedPayload struct {
	Fields map[string]any
}

func (ConnectedPayload) EventType() EventType { return EventConnected }
func (ConnectedPayload) payload()             {}

// MarshalJSON renders the acknowledgment as the record it was decoded from.
func (p ConnectedPayload) MarshalJSON() ([]byte, error) {
	if p.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Fields)
}

// GameStatePayload is a snapshot of the player's current game.
type GameStatePayload struct {
	GameID            *string `json:"game_id"`
	Mistakes          int     `json:"mistakes"`
	Completed         bool    `json:"completed"`
	RemainingAttempts int     `json:"remaining_attempts"`
	Active            bool    `json:"active"`
}

func (GameStatePayload) EventType() EventType { return EventGameState }
func (GameStatePayload) payload()             {}

// GameWonPayload announces a finished, won game.
type GameWonPayload struct {
	GameID    string  `json:"game_id"`
	Score     float64 `json:"score"`
	Mistakes  int     `json:"mistakes"`
	TimeTaken float64 `json:"time_taken"`
}

func (GameWonPayload) EventType() EventType { return EventGameWon }
func (GameWonPayload) payload()             {}

// ErrorKind classifies failures reported on the error channel. Subscriber
// failures are logged and counted but never reported here. A kind sent by
// the server is kept as is.
type ErrorKind string

const (
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindTransport     ErrorKind = "transport"
	ErrorKindDecode        ErrorKind = "decode"
)

// ErrorPayload is delivered to error subscribers. Err holds the underlying Go
// error, when there is one, and is not part of the wire record.
type ErrorPayload struct {
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Err     error     `json:"-"`
}

func (ErrorPayload) EventType() EventType { return EventError }
func (ErrorPayload) payload()             {}

func (p ErrorPayload) Error() string {
	if p.Err != nil && p.Err.Error() != p.Message {
		return fmt.Sprintf("%s: %v", p.Message, p.Err)
	}
	return p.Message
}

func (p ErrorPayload) Unwrap() error {
	return p.Err
}

// NewErrorPayload builds an ErrorPayload whose message is taken from err.
func NewErrorPayload(kind ErrorKind, err error) ErrorPayload {
	msg := DefaultErrorMessage
	if err != nil {
		msg = err.Error()
	}
	return ErrorPayload{Message: msg, Kind: kind, Err: err}
}

// DecodePayload decodes the textual data of an event into its typed payload.
//
// Error events are decoded on a best-effort basis: missing or unreadable data
// yields a transport ErrorPayload with DefaultErrorMessage, and the returned
// error is always nil.
func DecodePayload(eventType EventType, data []byte) (Payload, error) {
	switch eventType {
	case EventConnected:
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return ConnectedPayload{Fields: fields}, nil

	case EventGameState:
		var state GameStatePayload
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return state, nil

	case EventGameWon:
		var won GameWonPayload
		if err := json.Unmarshal(data, &won); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return won, nil

	case EventError:
		return decodeErrorPayload(data), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
}

func decodeErrorPayload(data []byte) ErrorPayload {
	fallback := ErrorPayload{Message: DefaultErrorMessage, Kind: ErrorKindTransport}
	if len(data) == 0 {
		return fallback
	}

	var p ErrorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		fallback.Err = fmt.Errorf("failed to decode %s payload: %w", EventError, err)
		return fallback
	}
	if p.Message == "" {
		p.Message = DefaultErrorMessage
	}
	if p.Kind == "" {
		p.Kind = ErrorKindTransport
	}
	return p
}
