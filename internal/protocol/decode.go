package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent marks an event name outside the closed union. The router
// skips these without treating them as failures.
var ErrUnknownEvent = errors.New("unknown event")

// Decode maps an envelope to its typed payload. Extra fields are ignored;
// missing required fields fail the whole event so the reducer never sees a
// half-formed payload.
func Decode(env Envelope) (Inbound, error) {
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch env.Event {
	case EventGameState:
		var e Snapshot
		if err := json.Unmarshal(data, &e.GameState); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if e.Phase == "" {
			return nil, missingField(env.Event, "phase")
		}
		return e, nil

	case EventGameStarted:
		var e GameStarted
		if err := json.Unmarshal(data, &e.GameState); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if e.Phase == "" {
			return nil, missingField(env.Event, "phase")
		}
		return e, nil

	case EventConnected:
		var e Connected
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		return e, nil

	case EventPlayerJoined:
		var e PlayerJoined
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if !e.Position.Valid() {
			return nil, missingField(env.Event, "position")
		}
		return e, nil

	case EventPlayerLeft:
		var e PlayerLeft
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if e.Username == "" {
			return nil, missingField(env.Event, "username")
		}
		return e, nil

	case EventBotsAdded:
		var e BotsAdded
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		return e, nil

	case EventSpectatorJoined:
		var e SpectatorJoined
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if e.Username == "" {
			return nil, missingField(env.Event, "username")
		}
		return e, nil

	case EventBidUpdate:
		var e BidUpdate
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if !e.Position.Valid() {
			return nil, missingField(env.Event, "position")
		}
		if e.Phase == "" {
			return nil, missingField(env.Event, "phase")
		}
		return e, nil

	case EventTrumpSelected:
		var e TrumpSelected
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if e.TrumpSuit == nil {
			return nil, missingField(env.Event, "trump_suit")
		}
		if *e.TrumpSuit < 0 || *e.TrumpSuit > 6 {
			return nil, fmt.Errorf("decode %s: trump_suit %d out of range", env.Event, *e.TrumpSuit)
		}
		return e, nil

	case EventDominoPlayed:
		var e DominoPlayed
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if e.Phase == "" {
			return nil, missingField(env.Event, "phase")
		}
		return e, nil

	case EventHandUpdate:
		// Distinguish an absent hand from an empty one: after the last
		// play of a hand the server legitimately sends [].
		var probe struct {
			Hand *[]json.RawMessage `json:"hand"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if probe.Hand == nil {
			return nil, missingField(env.Event, "hand")
		}
		var e HandUpdate
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		return e, nil

	case EventChatMessage:
		var e Chat
		if err := json.Unmarshal(data, &e.ChatMessage); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		if e.Username == "" {
			return nil, missingField(env.Event, "username")
		}
		return e, nil

	case EventError:
		var e ServerError
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, decodeErr(env.Event, err)
		}
		return e, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

// Encode frames an outbound intent into envelope bytes.
func Encode(out Outbound) ([]byte, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", out.EventName(), err)
	}
	return json.Marshal(Envelope{Event: out.EventName(), Data: data})
}

func decodeErr(event string, err error) error {
	return fmt.Errorf("decode %s: %w", event, err)
}

func missingField(event, field string) error {
	return fmt.Errorf("decode %s: missing required field %q", event, field)
}
