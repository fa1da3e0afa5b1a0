package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/archipelago/engine"
)

// MaxNickname is the longest accepted nickname, in bytes.
const MaxNickname = 32

// FaultError is a malformed or out-of-schema message. It is answered with a
// protocol_error nack and never ends the session.
type FaultError struct {
	Reason string
	Err    error
}

func (e *FaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol fault: %s: %v", e.Reason, e.Err)
	}
	return "protocol fault: " + e.Reason
}

func (e *FaultError) Unwrap() error { return e.Err }

func fault(reason string, err error) *FaultError { return &FaultError{Reason: reason, Err: err} }

// IsFault reports whether err is, or wraps, a *FaultError.
func IsFault(err error) bool {
	var f *FaultError
	return errors.As(err, &f)
}

// Decode parses and validates one client line.
func Decode(line []byte) (ClientMessage, error) {
	var m ClientMessage
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return ClientMessage{}, fault("malformed message", err)
	}
	if dec.More() {
		return ClientMessage{}, fault("trailing data after message", nil)
	}
	if err := m.Validate(); err != nil {
		return ClientMessage{}, err
	}
	return m, nil
}

// Validate checks that the fields required by the message object are present.
func (m *ClientMessage) Validate() error {
	missing := func(field string) error {
		return fault(fmt.Sprintf("%s requires %s", m.Object, field), nil)
	}
	switch m.Object {
	case ObjJoin:
		m.Nickname = strings.TrimSpace(m.Nickname)
		if m.Nickname == "" || len(m.Nickname) > MaxNickname {
			return fault(fmt.Sprintf("nickname must be 1-%d bytes", MaxNickname), nil)
		}
		if m.LobbyID != "" {
			if _, err := uuid.Parse(m.LobbyID); err != nil {
				return fault("lobbyId is not a uuid", err)
			}
			return nil
		}
		if m.Players < engine.MinPlayers || m.Players > engine.MaxPlayers {
			return fault(fmt.Sprintf("players must be %d-%d", engine.MinPlayers, engine.MaxPlayers), nil)
		}
	case ObjTowerColor:
		if m.Tower == nil || *m.Tower == engine.NoTower {
			return missing("tower")
		}
	case ObjDeck:
		if m.Wizard == nil {
			return missing("wizard")
		}
	case ObjAssistant:
		if m.Assistant == nil {
			return missing("assistant")
		}
	case ObjMoveStudent:
		if m.Slot == nil {
			return missing("slot")
		}
		switch m.Destination {
		case DestDining:
		case DestIsland:
			if m.Island == nil {
				return missing("island")
			}
		default:
			return fault(fmt.Sprintf("unknown destination %q", m.Destination), nil)
		}
	case ObjMotherNature:
		if m.Island == nil {
			return missing("island")
		}
	case ObjCloud:
		if m.Cloud == nil {
			return missing("cloud")
		}
	case ObjCharacterRequest:
		if m.Character == nil {
			return missing("character")
		}
	case ObjCharacterData:
		if m.Data == nil {
			return missing("data")
		}
	case ObjCharacterCancel, ObjPing:
	default:
		return fault(fmt.Sprintf("unknown object %q", m.Object), nil)
	}
	return nil
}

// Encode marshals v as one newline-terminated line.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeServer parses one server line. Unknown fields are tolerated so older
// clients keep working against newer servers.
func DecodeServer(line []byte) (ServerMessage, error) {
	var m ServerMessage
	if err := json.Unmarshal(bytes.TrimSpace(line), &m); err != nil {
		return ServerMessage{}, fault("malformed server message", err)
	}
	if m.Object == "" {
		return ServerMessage{}, fault("server message without object", nil)
	}
	return m, nil
}
