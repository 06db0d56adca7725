// Package wire defines the JSON event envelope exchanged over the
// websocket channel between clients and the session coordinator.
package wire

import "encoding/json"

type EventType string

// Inbound event types.
const (
	EvtJoin          EventType = "join"
	EvtCreateBotGame EventType = "createBotGame"
	EvtMove          EventType = "move"
)

// Outbound event types.
const (
	EvtRoleAssigned EventType = "roleAssigned"
	EvtRoomCreated  EventType = "roomCreated"
	EvtRoomJoined   EventType = "roomJoined"
	EvtRoomNotFound EventType = "roomNotFound"
	EvtRoomFull     EventType = "roomFull"
	EvtPlayerUpdate EventType = "playerUpdate"
	EvtBoardState   EventType = "boardState"
	EvtTimerUpdate  EventType = "timerUpdate"
	EvtTimeout      EventType = "timeout"
	EvtGameOver     EventType = "gameOver"
	EvtInvalidMove  EventType = "invalidMove"
	EvtPlayerLeft   EventType = "playerLeft"
)

// Event is the single framing used in both directions.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event. A nil payload produces an
// event with no payload field (roomNotFound, roomFull, invalidMove).
func NewEvent(t EventType, payload any) Event {
	if payload == nil {
		return Event{Type: t}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// payload structs below are all marshalable; this is unreachable
		// for coordinator-produced events.
		return Event{Type: t}
	}
	return Event{Type: t, Payload: raw}
}

// Inbound payloads.

type JoinRequest struct {
	Name      string `json:"name"`
	TimeLimit string `json:"timeLimit"`
	RoomCode  string `json:"roomCode,omitempty"`
}

type CreateBotGameRequest struct {
	Name      string `json:"name"`
	TimeLimit string `json:"timeLimit"`
	Skill     string `json:"skill"`
}

type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// Outbound payloads.

type RoleAssigned struct {
	Role string `json:"role"` // "w" or "b"
}

type RoomRef struct {
	RoomCode string `json:"roomCode"`
}

type PlayerInfo struct {
	Name string `json:"name"`
}

type PlayerUpdate struct {
	White *PlayerInfo `json:"white"`
	Black *PlayerInfo `json:"black"`
}

type BoardState struct {
	FEN string `json:"fen"`
}

type TimerUpdate struct {
	White string `json:"white"` // mm:ss
	Black string `json:"black"`
}

type Timeout struct {
	Winner string `json:"winner"` // "white" or "black"
}

type GameOver struct {
	Result string `json:"result"`
}

type PlayerLeft struct {
	Name string `json:"name"`
}
