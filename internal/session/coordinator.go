package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyeon-dev/chessroom/internal/archive"
	"github.com/hyeon-dev/chessroom/internal/bot"
	"github.com/hyeon-dev/chessroom/internal/obslog"
	"github.com/hyeon-dev/chessroom/internal/rules"
	"github.com/hyeon-dev/chessroom/internal/suggest"
	"github.com/hyeon-dev/chessroom/pkg/wire"
)

// Suggester is the move-suggestion capability consumed by bot orchestration
// and post-game commentary.
type Suggester interface {
	Enabled() bool
	SuggestMove(ctx context.Context, req suggest.Request) (string, error)
	AnalyzePosition(ctx context.Context, fen string) (string, error)
}

// Options configures a Coordinator. Zero values fall back to production
// defaults; tests shrink TickEvery and the bot delays.
type Options struct {
	Suggester      Suggester
	Store          archive.Store
	Delays         bot.Delays
	TickEvery      time.Duration
	SuggestTimeout time.Duration
	Seed           int64
}

// Coordinator owns the room table, the matchmaking queue and the outbox
// registry. Every mutation of that state happens under mu, which is the
// per-room exclusive-execution guarantee: clock ticks and resumed bot
// continuations re-enter through methods that re-fetch the room by code
// and abort when it is gone or already over.
type Coordinator struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	pending []*pendingEntry
	outs    map[string]chan<- wire.Event
	byConn  map[string]string // connID -> room code
	closed  bool

	suggester      Suggester
	store          archive.Store
	delays         bot.Delays
	tickEvery      time.Duration
	suggestTimeout time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New builds a Coordinator ready to accept connections.
func New(opts Options) *Coordinator {
	if opts.Store == nil {
		opts.Store = archive.NewMemoryStore(0)
	}
	if opts.Delays == nil {
		opts.Delays = bot.DefaultDelays()
	}
	if opts.TickEvery <= 0 {
		opts.TickEvery = time.Second
	}
	if opts.SuggestTimeout <= 0 {
		opts.SuggestTimeout = 10 * time.Second
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	return &Coordinator{
		rooms:          make(map[string]*Room),
		outs:           make(map[string]chan<- wire.Event),
		byConn:         make(map[string]string),
		suggester:      opts.Suggester,
		store:          opts.Store,
		delays:         opts.Delays,
		tickEvery:      opts.TickEvery,
		suggestTimeout: opts.SuggestTimeout,
		rng:            rand.New(rand.NewSource(opts.Seed)),
	}
}

// Register attaches a connection's outbox. Events for that connection are
// dropped until registration and after Disconnect.
func (c *Coordinator) Register(connID string, out chan<- wire.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.outs[connID] = out
}

// Close tears down every room and stops all clocks. Pending suggestion
// calls resolve against an empty table and are discarded.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for code, room := range c.rooms {
		if room.clock != nil {
			room.clock.Stop()
		}
		delete(c.rooms, code)
	}
	c.pending = nil
	c.byConn = make(map[string]string)
	c.outs = make(map[string]chan<- wire.Event)
}

// Join handles both explicit-code joins and anonymous matchmaking.
func (c *Coordinator) Join(connID, name, timeLimit, roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if code := strings.TrimSpace(roomCode); code != "" {
		c.joinByCode(connID, name, code)
		return
	}

	// Matchmaking: pair on time-control equality only. Indexed scan so a
	// removal does not shift entries past the cursor.
	for i := 0; i < len(c.pending); {
		entry := c.pending[i]
		if entry.TimeLimit != timeLimit {
			i++
			continue
		}
		room, ok := c.rooms[entry.RoomCode]
		if !ok {
			// stale entry; the room disappeared with its creator
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			continue
		}
		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		c.seatBlack(room, connID, name)
		obslog.L().Info("room_paired",
			zap.String("room", room.Code),
			zap.String("conn", connID),
			zap.String("time_limit", timeLimit),
		)
		return
	}

	// No partner waiting: open a room and queue.
	room, err := c.createRoom(connID, name, timeLimit)
	if err != nil {
		obslog.L().Error("room_create_error", zap.Error(err))
		return
	}
	c.pending = append(c.pending, &pendingEntry{
		ConnID:    connID,
		Name:      name,
		TimeLimit: timeLimit,
		RoomCode:  room.Code,
	})
	c.send(connID, wire.NewEvent(wire.EvtRoleAssigned, wire.RoleAssigned{Role: rules.White.Short()}))
	c.send(connID, wire.NewEvent(wire.EvtRoomCreated, wire.RoomRef{RoomCode: room.Code}))
	c.sendRoomState(room)
	obslog.L().Info("room_created",
		zap.String("room", room.Code),
		zap.String("conn", connID),
		zap.String("time_limit", timeLimit),
	)
}

func (c *Coordinator) joinByCode(connID, name, code string) {
	room, err := c.lookupJoinRoom(code)
	if err != nil {
		evt := wire.EvtRoomNotFound
		if errors.Is(err, ErrRoomFull) {
			evt = wire.EvtRoomFull
		}
		c.send(connID, wire.NewEvent(evt, nil))
		return
	}
	// The creator always holds white, so the entering side is black.
	c.seatBlack(room, connID, name)
	// The room is no longer available to matchmaking.
	c.removePendingForRoom(code)
	obslog.L().Info("room_joined",
		zap.String("room", code),
		zap.String("conn", connID),
	)
}

// lookupJoinRoom resolves an explicit room code to a joinable room.
// Caller holds mu.
func (c *Coordinator) lookupJoinRoom(code string) (*Room, error) {
	room, ok := c.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	if room.full() {
		return nil, fmt.Errorf("%w: %s", ErrRoomFull, code)
	}
	return room, nil
}

// removePendingForRoom drops the matchmaking entry bound to a room that
// just filled up. Caller holds mu.
func (c *Coordinator) removePendingForRoom(code string) {
	for i, entry := range c.pending {
		if entry.RoomCode == code {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// seatBlack fills the second slot, activates the room and starts its clock.
func (c *Coordinator) seatBlack(room *Room, connID, name string) {
	room.Players = append(room.Players, &Player{ConnID: connID, Name: name, Color: rules.Black})
	c.byConn[connID] = room.Code
	room.Status = StatusActive

	c.send(connID, wire.NewEvent(wire.EvtRoleAssigned, wire.RoleAssigned{Role: rules.Black.Short()}))
	c.send(connID, wire.NewEvent(wire.EvtRoomJoined, wire.RoomRef{RoomCode: room.Code}))
	c.broadcastRoomState(room)
	c.startClock(room)
}

func (c *Coordinator) createRoom(connID, name, timeLimit string) (*Room, error) {
	code, err := c.allocateCode()
	if err != nil {
		return nil, err
	}
	secs := TimeControlSeconds(timeLimit)
	room := &Room{
		Code:      code,
		Position:  rules.NewPosition(),
		Players:   []*Player{{ConnID: connID, Name: name, Color: rules.White}},
		Status:    StatusWaiting,
		WhiteTime: secs,
		BlackTime: secs,
	}
	c.rooms[code] = room
	c.byConn[connID] = code
	return room, nil
}

func (c *Coordinator) allocateCode() (string, error) {
	for i := 0; i < 5; i++ {
		code, err := newCode()
		if err != nil {
			return "", err
		}
		if _, exists := c.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate room code")
}

// CreateBotGame opens a room against the computer, bypassing matchmaking.
// The human always plays white; the clock starts immediately.
func (c *Coordinator) CreateBotGame(connID, name, timeLimit, skill string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	room, err := c.createRoom(connID, name, timeLimit)
	if err != nil {
		obslog.L().Error("bot_room_create_error", zap.Error(err))
		return
	}
	sk := bot.ParseSkill(skill)
	botLabel := fmt.Sprintf("Bot (%s)", sk)
	if c.suggester != nil && c.suggester.Enabled() {
		botLabel = fmt.Sprintf("AI (%s)", sk)
	}
	room.Players = append(room.Players, &Player{ConnID: BotConnID, Name: botLabel, Color: rules.Black})
	room.Bot = true
	room.Skill = sk
	room.Status = StatusActive

	c.send(connID, wire.NewEvent(wire.EvtRoleAssigned, wire.RoleAssigned{Role: rules.White.Short()}))
	c.send(connID, wire.NewEvent(wire.EvtRoomCreated, wire.RoomRef{RoomCode: room.Code}))
	c.broadcastRoomState(room)
	c.startClock(room)
	obslog.L().Info("bot_room_created",
		zap.String("room", room.Code),
		zap.String("conn", connID),
		zap.String("skill", string(sk)),
	)
}

// Move applies a human move. Rejections surface as a single invalidMove
// event; a move referencing a vanished room is ignored silently.
func (c *Coordinator) Move(connID string, req wire.MoveRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, ok := c.byConn[connID]
	if !ok {
		return
	}
	room, ok := c.rooms[code]
	if !ok || room.Status != StatusActive {
		return
	}

	if err := c.applyHumanMove(room, connID, req); err != nil {
		// ErrNotYourTurn and ErrInvalidMove are indistinguishable on the wire
		c.send(connID, wire.NewEvent(wire.EvtInvalidMove, nil))
		return
	}
	c.afterMove(room)
}

// applyHumanMove validates turn ownership and applies the move. Caller
// holds mu and broadcasts on success.
func (c *Coordinator) applyHumanMove(room *Room, connID string, req wire.MoveRequest) error {
	player := room.playerByConn(connID)
	if player == nil || player.Color != room.Position.Turn() {
		return fmt.Errorf("%w: %s", ErrNotYourTurn, connID)
	}

	uci := strings.ToLower(strings.TrimSpace(req.From) + strings.TrimSpace(req.To) + strings.TrimSpace(req.Promotion))
	if err := room.Position.ApplyUCI(uci); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMove, uci)
	}
	obslog.L().Info("move_applied",
		zap.String("room", room.Code),
		zap.String("conn", connID),
		zap.String("uci", uci),
	)
	return nil
}

// afterMove runs the shared post-application path for human and bot moves.
// Caller holds mu and has already mutated the position.
func (c *Coordinator) afterMove(room *Room) {
	c.broadcast(room, wire.NewEvent(wire.EvtBoardState, wire.BoardState{FEN: room.Position.FEN()}))

	if room.Position.GameOver() {
		c.finishOnBoard(room)
		return
	}

	if room.Bot && room.Position.Turn() == rules.Black {
		snapshot := botTurnSnapshot{
			Code:       room.Code,
			FEN:        room.Position.FEN(),
			HistorySAN: room.Position.SANHistory(),
			MoveNumber: room.Position.FullMoveNumber(),
			Skill:      room.Skill,
			Remaining:  room.remaining(rules.Black),
		}
		go c.runBotTurn(snapshot)
	}
	// Otherwise nothing to do: the clock reads the new turn on its next tick.
}

// finishOnBoard ends a room whose position became terminal.
func (c *Coordinator) finishOnBoard(room *Room) {
	var result, winner, outcome string
	switch {
	case room.Position.Checkmate():
		outcome = "checkmate"
		// the side to move is the side that got mated
		if room.Position.Turn() == rules.White {
			result = "Black wins by checkmate!"
			winner = string(rules.Black)
		} else {
			result = "White wins by checkmate!"
			winner = string(rules.White)
		}
	case room.Position.Draw():
		outcome = "draw"
		result = "Game ended in a draw!"
	default:
		outcome = "draw"
		result = "Game ended in a draw!"
	}

	c.teardown(room, wire.NewEvent(wire.EvtGameOver, wire.GameOver{Result: result}), winner, outcome)

	if c.suggester != nil && c.suggester.Enabled() {
		go c.logFinalAnalysis(room.Code, room.Position.FEN())
	}
}

// logFinalAnalysis requests commentary on the terminal position. Purely
// observational; the room is already gone when the answer arrives.
func (c *Coordinator) logFinalAnalysis(code, fen string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.suggestTimeout)
	defer cancel()
	analysis, err := c.suggester.AnalyzePosition(ctx, fen)
	if err != nil {
		obslog.L().Debug("analysis_error", zap.String("room", code), zap.Error(err))
		return
	}
	obslog.L().Info("game_over_analysis",
		zap.String("room", code),
		zap.String("analysis", analysis),
	)
}

// finishOnTimeout ends a room whose clock expired. Caller holds mu.
func (c *Coordinator) finishOnTimeout(room *Room, winner rules.Color) {
	c.teardown(room, wire.NewEvent(wire.EvtTimeout, wire.Timeout{Winner: string(winner)}), string(winner), "timeout")
}

// teardown broadcasts the terminal event, archives the result and removes
// the room from the table. Caller holds mu.
func (c *Coordinator) teardown(room *Room, final wire.Event, winner, outcome string) {
	room.Status = StatusOver
	if room.clock != nil {
		room.clock.Stop()
	}
	c.broadcast(room, final)
	delete(c.rooms, room.Code)
	for _, p := range room.Players {
		if p.ConnID != BotConnID {
			delete(c.byConn, p.ConnID)
		}
	}

	res := &archive.Result{
		RoomCode:   room.Code,
		Winner:     winner,
		Outcome:    outcome,
		FinalFEN:   room.Position.FEN(),
		MovesUCI:   room.Position.UCIHistory(),
		FinishedAt: time.Now().UTC(),
	}
	if w := room.playerByColor(rules.White); w != nil {
		res.WhiteName = w.Name
	}
	if b := room.playerByColor(rules.Black); b != nil {
		res.BlackName = b.Name
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.store.SaveResult(ctx, res); err != nil {
			obslog.L().Error("result_persist_error", zap.String("room", res.RoomCode), zap.Error(err))
		}
	}()

	obslog.L().Info("room_finished",
		zap.String("room", room.Code),
		zap.String("outcome", outcome),
		zap.String("winner", winner),
	)
}

// Disconnect removes a connection from matchmaking or tears down its room.
// Disconnects are room-fatal; there is no reconnection grace period.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.outs, connID)

	for i, entry := range c.pending {
		if entry.ConnID != connID {
			continue
		}
		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		if room, ok := c.rooms[entry.RoomCode]; ok && len(room.Players) == 1 {
			delete(c.rooms, entry.RoomCode)
			delete(c.byConn, connID)
			obslog.L().Info("room_discarded", zap.String("room", entry.RoomCode))
			return
		}
		break
	}

	code, ok := c.byConn[connID]
	if !ok {
		return
	}
	room, ok := c.rooms[code]
	if !ok {
		delete(c.byConn, connID)
		return
	}

	room.Status = StatusOver
	if room.clock != nil {
		room.clock.Stop()
	}
	leaver := room.playerByConn(connID)
	if !room.Bot && leaver != nil {
		for _, p := range room.Players {
			if p.ConnID != connID {
				c.send(p.ConnID, wire.NewEvent(wire.EvtPlayerLeft, wire.PlayerLeft{Name: leaver.Name}))
			}
		}
	}
	delete(c.rooms, code)
	for _, p := range room.Players {
		if p.ConnID != BotConnID {
			delete(c.byConn, p.ConnID)
		}
	}
	obslog.L().Info("room_abandoned",
		zap.String("room", code),
		zap.String("conn", connID),
	)
}

// sendRoomState pushes players, board and clocks to a single waiting creator.
func (c *Coordinator) sendRoomState(room *Room) {
	connID := room.Players[0].ConnID
	c.send(connID, wire.NewEvent(wire.EvtPlayerUpdate, c.playerUpdate(room)))
	c.send(connID, wire.NewEvent(wire.EvtBoardState, wire.BoardState{FEN: room.Position.FEN()}))
	c.send(connID, wire.NewEvent(wire.EvtTimerUpdate, wire.TimerUpdate{
		White: formatClock(room.WhiteTime),
		Black: formatClock(room.BlackTime),
	}))
}

// broadcastRoomState pushes players, board and clocks to every member.
func (c *Coordinator) broadcastRoomState(room *Room) {
	c.broadcast(room, wire.NewEvent(wire.EvtPlayerUpdate, c.playerUpdate(room)))
	c.broadcast(room, wire.NewEvent(wire.EvtBoardState, wire.BoardState{FEN: room.Position.FEN()}))
	c.broadcast(room, wire.NewEvent(wire.EvtTimerUpdate, wire.TimerUpdate{
		White: formatClock(room.WhiteTime),
		Black: formatClock(room.BlackTime),
	}))
}

func (c *Coordinator) playerUpdate(room *Room) wire.PlayerUpdate {
	var upd wire.PlayerUpdate
	if p := room.playerByColor(rules.White); p != nil {
		upd.White = &wire.PlayerInfo{Name: p.Name}
	}
	if p := room.playerByColor(rules.Black); p != nil {
		upd.Black = &wire.PlayerInfo{Name: p.Name}
	}
	return upd
}

// broadcast delivers an event to every human member of a room. Caller holds
// mu, so per-room delivery order matches application order.
func (c *Coordinator) broadcast(room *Room, evt wire.Event) {
	for _, p := range room.Players {
		c.send(p.ConnID, evt)
	}
}

// send enqueues an event on a connection outbox without blocking the
// coordinator; a full outbox drops the event for that slow client.
func (c *Coordinator) send(connID string, evt wire.Event) {
	if connID == BotConnID {
		return
	}
	out, ok := c.outs[connID]
	if !ok {
		return
	}
	select {
	case out <- evt:
	default:
		obslog.L().Warn("outbox_full",
			zap.String("conn", connID),
			zap.String("event", string(evt.Type)),
		)
	}
}

// randDelay draws from the shared source without racing bot goroutines.
func (c *Coordinator) randDelay(skill bot.Skill) time.Duration {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.delays.Pick(skill, c.rng)
}
