package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hyeon-dev/chessroom/internal/bot"
	"github.com/hyeon-dev/chessroom/internal/obslog"
	"github.com/hyeon-dev/chessroom/internal/rules"
	"github.com/hyeon-dev/chessroom/internal/suggest"
)

// botTurnSnapshot captures everything the bot turn needs at scheduling
// time. The live room is deliberately not referenced: the room is re-fetched
// by code when the move is finally submitted, because the room may have been
// torn down while this goroutine was suspended.
type botTurnSnapshot struct {
	Code       string
	FEN        string
	HistorySAN []string
	MoveNumber int
	Skill      bot.Skill
	Remaining  int
}

// runBotTurn simulates thinking while concurrently asking the suggestion
// service for a move, then submits the result through the same application
// path human moves use. Runs outside the coordinator mutex.
func (c *Coordinator) runBotTurn(snap botTurnSnapshot) {
	pos, err := rules.FromFEN(snap.FEN)
	if err != nil {
		obslog.L().Error("bot_snapshot_error", zap.String("room", snap.Code), zap.Error(err))
		return
	}
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		// terminal positions never schedule a bot turn; nothing to play
		return
	}

	delay := c.randDelay(snap.Skill)

	// Ask the service without blocking the thinking pause.
	type answer struct {
		san string
		err error
	}
	answerCh := make(chan answer, 1)
	ctx, cancel := context.WithTimeout(context.Background(), c.suggestTimeout)
	defer cancel()
	go func() {
		if c.suggester == nil {
			answerCh <- answer{err: suggest.ErrDisabled}
			return
		}
		legalSAN := make([]string, len(legal))
		for i, d := range legal {
			legalSAN[i] = d.SAN
		}
		san, err := c.suggester.SuggestMove(ctx, suggest.Request{
			FEN:        snap.FEN,
			LegalSAN:   legalSAN,
			HistorySAN: snap.HistorySAN,
			Skill:      string(snap.Skill),
			MoveNumber: snap.MoveNumber,
			Remaining:  snap.Remaining,
		})
		answerCh <- answer{san: san, err: err}
	}()

	time.Sleep(delay)

	var san string
	select {
	case a := <-answerCh:
		if a.err != nil {
			if !errors.Is(a.err, suggest.ErrDisabled) {
				obslog.L().Warn("suggestion_failed", zap.String("room", snap.Code), zap.Error(a.err))
			}
		} else if containsSAN(legal, a.san) {
			san = a.san
		} else {
			obslog.L().Warn("suggestion_illegal", zap.String("room", snap.Code), zap.String("san", a.san))
		}
	case <-ctx.Done():
		obslog.L().Warn("suggestion_timeout", zap.String("room", snap.Code))
	}

	if san == "" {
		c.rngMu.Lock()
		pick, err := bot.SelectFallback(legal, snap.Skill, c.rng)
		c.rngMu.Unlock()
		if err != nil {
			return
		}
		san = pick.SAN
		obslog.L().Info("bot_fallback_move",
			zap.String("room", snap.Code),
			zap.String("skill", string(snap.Skill)),
			zap.String("san", san),
		)
	}

	c.submitBotMove(snap.Code, san)
}

func containsSAN(legal []rules.MoveDescriptor, san string) bool {
	for _, d := range legal {
		if d.SAN == san {
			return true
		}
	}
	return false
}

// submitBotMove re-validates the room after the suspension and applies the
// chosen move through the shared path. A room that vanished or finished in
// the meantime silently swallows the move.
func (c *Coordinator) submitBotMove(code, san string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[code]
	if !ok || room.Status != StatusActive || !room.Bot {
		return
	}
	if room.Position.Turn() != rules.Black {
		return
	}

	if err := room.Position.ApplySAN(san); err != nil {
		// the snapshot and live position cannot diverge while the bot is to
		// move, but an engine refusal still must not strand the room
		c.rngMu.Lock()
		pick, ferr := bot.SelectFallback(room.Position.LegalMoves(), room.Skill, c.rng)
		c.rngMu.Unlock()
		if ferr != nil {
			return
		}
		if err := room.Position.ApplySAN(pick.SAN); err != nil {
			obslog.L().Error("bot_move_stuck", zap.String("room", code), zap.Error(err))
			return
		}
		san = pick.SAN
	}

	obslog.L().Info("bot_move_applied",
		zap.String("room", code),
		zap.String("san", san),
	)
	c.afterMove(room)
}
