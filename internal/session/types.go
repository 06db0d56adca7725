// Package session is the core of the server: the coordinator owns the room
// table and is the sole mutator of rooms, clocks and matchmaking state.
package session

import (
	"crypto/rand"
	"fmt"

	"github.com/hyeon-dev/chessroom/internal/bot"
	"github.com/hyeon-dev/chessroom/internal/rules"
)

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting Status = "WAITING" // one occupied slot, queued for an opponent
	StatusActive  Status = "ACTIVE"  // two slots, clock running
	StatusOver    Status = "OVER"    // terminal; the room leaves the table immediately
)

// BotConnID marks the synthetic player slot in bot rooms. No outbox is ever
// registered under it.
const BotConnID = "bot"

// Player is one occupied slot of a room.
type Player struct {
	ConnID string
	Name   string
	Color  rules.Color
}

// Room aggregates everything the coordinator tracks for one game. All
// access is serialized behind the coordinator mutex.
type Room struct {
	Code     string
	Position *rules.Position
	Players  []*Player // at most 2, at most one per color
	Status   Status

	WhiteTime int // seconds remaining
	BlackTime int

	Bot   bool
	Skill bot.Skill

	clock *roomClock
}

func (r *Room) full() bool { return len(r.Players) >= 2 }

func (r *Room) playerByConn(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) playerByColor(color rules.Color) *Player {
	for _, p := range r.Players {
		if p.Color == color {
			return p
		}
	}
	return nil
}

func (r *Room) remaining(color rules.Color) int {
	if color == rules.White {
		return r.WhiteTime
	}
	return r.BlackTime
}

// pendingEntry is one unmatched join request waiting for an opponent with
// the same time control.
type pendingEntry struct {
	ConnID    string
	Name      string
	TimeLimit string
	RoomCode  string
}

// Sentinel errors for room operations. The coordinator collapses
// ErrInvalidMove and ErrNotYourTurn into the single invalidMove event so
// turn-order detail does not leak to the mover.
var (
	ErrRoomNotFound = errf("room not found")
	ErrRoomFull     = errf("room already has two players")
	ErrInvalidMove  = errf("invalid move")
	ErrNotYourTurn  = errf("not your turn")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

var timeControls = map[string]int{
	"1min":  60,
	"3min":  180,
	"5min":  300,
	"10min": 600,
	"30min": 1800,
}

// TimeControlSeconds maps a client time-limit label to per-side seconds.
// Unknown labels fall back to five minutes.
func TimeControlSeconds(limit string) int {
	if secs, ok := timeControls[limit]; ok {
		return secs
	}
	return 300
}

// formatClock renders remaining seconds as zero-padded mm:ss.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

const codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newCode returns a 6-character room code.
func newCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeLetters[int(b[i])%len(codeLetters)]
	}
	return string(b), nil
}
