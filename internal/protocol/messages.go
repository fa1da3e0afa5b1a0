// Package protocol defines the messages exchanged between clients and the
// match server and their line-delimited JSON encoding.
package protocol

import (
	"github.com/jason-s-yu/archipelago/engine"
)

// Object is the top-level discriminator of every message.
type Object string

// Client to server objects.
const (
	ObjJoin             Object = "join"
	ObjTowerColor       Object = "tower_color"
	ObjDeck             Object = "deck"
	ObjAssistant        Object = "assistant"
	ObjMoveStudent      Object = "move_student"
	ObjMotherNature     Object = "mother_nature"
	ObjCloud            Object = "cloud"
	ObjCharacterRequest Object = "character_request"
	ObjCharacterData    Object = "character_data"
	ObjCharacterCancel  Object = "character_cancel"
	ObjPing             Object = "ping"
)

// Server to client objects.
const (
	ObjJoined       Object = "joined"
	ObjAck          Object = "ack"
	ObjNack         Object = "nack"
	ObjCharacterAck Object = "character_ack"
	ObjStart        Object = "start"
	ObjEnd          Object = "end"
)

// SubObject names the phase step an ack completes, or the category of a nack.
type SubObject string

// Ack sub-objects. Character requests are acked with the card name.
const (
	SubTowerColor      SubObject = "tower_color"
	SubDeck            SubObject = "deck"
	SubRefillClouds    SubObject = "refillClouds"
	SubAssistant       SubObject = "assistant"
	SubDiningRoom      SubObject = "action_1_dining_room"
	SubIsland          SubObject = "action_1_island"
	SubMovement        SubObject = "action_2_movement"
	SubInfluence       SubObject = "action_2_influence"
	SubUnion           SubObject = "action_2_union"
	SubAction3         SubObject = "action_3"
	SubCharacterCancel SubObject = "character_cancel"
	SubDisconnection   SubObject = "disconnection"
)

// Nack sub-objects raised outside the rules engine. Rule rejections use the
// engine's codes verbatim.
const (
	NackProtocolError     SubObject = "protocol_error"
	NackNicknameNotValid  SubObject = "nickname_not_valid"
	NackLobbyNotAvailable SubObject = "lobby_not_available"
)

// CharacterSub is the ack sub-object of a character request.
func CharacterSub(k engine.CharacterKind) SubObject { return SubObject(k.String()) }

// IsFatal reports whether a nack ends the client's session.
func (s SubObject) IsFatal() bool { return s == NackLobbyNotAvailable }

// Destination names of a move_student message.
const (
	DestDining = "dining"
	DestIsland = "island"
)

// ClientMessage is any message sent by a client. Only the fields of the
// named object are read; pointer fields are required by their object.
type ClientMessage struct {
	Object Object `json:"object"`

	// join
	Nickname string `json:"nickname,omitempty"`
	Players  int    `json:"players,omitempty"`
	Expert   bool   `json:"expert,omitempty"`
	LobbyID  string `json:"lobbyId,omitempty"`

	Tower       *engine.TowerColor    `json:"tower,omitempty"`
	Wizard      *int                  `json:"wizard,omitempty"`
	Assistant   *int                  `json:"assistant,omitempty"`
	Slot        *int                  `json:"slot,omitempty"`
	Destination string                `json:"destination,omitempty"`
	Island      *int                  `json:"island,omitempty"`
	Cloud       *int                  `json:"cloud,omitempty"`
	Character   *engine.CharacterKind `json:"character,omitempty"`
	Data        *CharacterPayload     `json:"data,omitempty"`
}

// CharacterPayload is the variant-specific data of a character_data message.
type CharacterPayload struct {
	Island    *int              `json:"island,omitempty"`
	Creature  *engine.Creature  `json:"creature,omitempty"`
	Slots     []int             `json:"slots,omitempty"`
	Creatures []engine.Creature `json:"creatures,omitempty"`
}

// EngineData converts the payload for the rules engine. Absent fields map
// to values every card rejects.
func (p *CharacterPayload) EngineData() engine.CharacterData {
	d := engine.CharacterData{Island: -1, Creature: engine.NoCreature}
	if p == nil {
		return d
	}
	if p.Island != nil {
		d.Island = *p.Island
	}
	if p.Creature != nil {
		d.Creature = *p.Creature
	}
	d.Slots = p.Slots
	d.Creatures = p.Creatures
	return d
}

// ServerMessage is any message sent by the server. Acks carry the match
// position after the action so clients can decide their next prompt.
type ServerMessage struct {
	Object      Object    `json:"object"`
	SubObject   SubObject `json:"subObject,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	Fatal       bool      `json:"fatal,omitempty"`

	Player       *int          `json:"player,omitempty"`
	NextPlayer   *int          `json:"nextPlayer,omitempty"`
	Phase        *engine.Phase `json:"phase,omitempty"`
	MovesLeft    *int          `json:"movesLeft,omitempty"`
	Action3Valid *bool         `json:"action3Valid,omitempty"`

	UnavailableTowers []engine.TowerColor   `json:"unavailableTowers,omitempty"`
	UnavailableDecks  []int                 `json:"unavailableDecks,omitempty"`
	Character         *engine.CharacterKind `json:"character,omitempty"`

	Delta     *Delta           `json:"delta,omitempty"`
	Influence *InfluenceResult `json:"influence,omitempty"`
	Union     *UnionResult     `json:"union,omitempty"`
	Start     *Snapshot        `json:"start,omitempty"`
	End       *EndResult       `json:"end,omitempty"`

	// joined
	Seat    *int   `json:"seat,omitempty"`
	LobbyID string `json:"lobbyId,omitempty"`
}

// InfluenceResult reports the outcome of an influence computation.
type InfluenceResult struct {
	Island         int  `json:"island"`
	Blocked        bool `json:"blocked,omitempty"`
	MasterChanged  bool `json:"masterChanged"`
	PreviousMaster int  `json:"previousMaster"`
	NewMaster      int  `json:"newMaster"`
}

// UnionResult reports which neighbours fused into the island.
type UnionResult struct {
	Kind    engine.UnionKind `json:"kind"`
	Island  int              `json:"island"`
	Removed []int            `json:"removed,omitempty"`
}

// EndResult announces the end of the match. Winner is -1 for a draw.
type EndResult struct {
	Winner         int              `json:"winner"`
	WinnerNickname string           `json:"winnerNickname,omitempty"`
	Reason         engine.EndReason `json:"reason"`
}

// Nack builds a rejection for a single client.
func Nack(code SubObject, explanation string) ServerMessage {
	return ServerMessage{Object: ObjNack, SubObject: code, Explanation: explanation, Fatal: code.IsFatal()}
}

// Int returns a pointer to v, for optional message fields.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for optional message fields.
func Bool(v bool) *bool { return &v }
