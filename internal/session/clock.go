package session

import (
	"sync"
	"time"

	"github.com/hyeon-dev/chessroom/internal/rules"
	"github.com/hyeon-dev/chessroom/pkg/wire"
)

// roomClock is the cancellation handle for one room's tick loop. The loop
// itself holds only the room code; remaining time and the running side are
// read through the coordinator at tick time, so a move retargets the clock
// on the very next tick without restarting anything.
type roomClock struct {
	stop chan struct{}
	once sync.Once
}

func newRoomClock() *roomClock {
	return &roomClock{stop: make(chan struct{})}
}

// Stop cancels the tick loop. Idempotent.
func (c *roomClock) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// startClock begins the periodic countdown for a room. Caller holds the
// coordinator mutex. Starting an already-clocked room is a no-op.
func (c *Coordinator) startClock(room *Room) {
	if room.clock != nil {
		return
	}
	clk := newRoomClock()
	room.clock = clk

	go func(code string) {
		ticker := time.NewTicker(c.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-clk.stop:
				return
			case <-ticker.C:
				if !c.onTick(code) {
					return
				}
			}
		}
	}(room.Code)
}

// onTick decrements the clock of the side to move and reports whether the
// loop should keep running. A decrement reaching zero ends the game on time.
func (c *Coordinator) onTick(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[code]
	if !ok || room.Status != StatusActive {
		return false
	}

	turn := room.Position.Turn()
	var left int
	if turn == rules.White {
		room.WhiteTime--
		left = room.WhiteTime
	} else {
		room.BlackTime--
		left = room.BlackTime
	}

	if left <= 0 {
		if turn == rules.White {
			room.WhiteTime = 0
		} else {
			room.BlackTime = 0
		}
		c.finishOnTimeout(room, turn.Opponent())
		return false
	}

	c.broadcast(room, wire.NewEvent(wire.EvtTimerUpdate, wire.TimerUpdate{
		White: formatClock(room.WhiteTime),
		Black: formatClock(room.BlackTime),
	}))
	return true
}
