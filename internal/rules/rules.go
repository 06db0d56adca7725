// Package rules adapts the third-party move-generation library behind the
// narrow surface the session coordinator consumes: legality checking, move
// application, terminal-state classification and FEN serialization. No chess
// logic lives outside this package.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Short returns the one-letter role code used on the wire.
func (c Color) Short() string {
	if c == White {
		return "w"
	}
	return "b"
}

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   1,
	nchess.Knight: 3,
	nchess.Bishop: 3,
	nchess.Rook:   5,
	nchess.Queen:  9,
}

// MoveDescriptor is one currently legal move with the attributes the bot
// fallback selector keys on.
type MoveDescriptor struct {
	UCI          string
	SAN          string
	Capture      bool
	Check        bool
	Mate         bool
	Develops     bool // knight or bishop move
	CaptureValue int
}

// ErrIllegalMove is returned when the engine refuses a candidate move.
var ErrIllegalMove = errf("illegal move")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Position is the authoritative game state of one room. It is not safe for
// concurrent use; the coordinator serializes access.
type Position struct {
	game *nchess.Game
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	return &Position{game: nchess.NewGame()}
}

// FromFEN reconstructs a position from its serialized form.
func FromFEN(fen string) (*Position, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Position{game: nchess.NewGame(opt)}, nil
}

// FEN serializes the position.
func (p *Position) FEN() string { return p.game.FEN() }

// Turn reports the color to move.
func (p *Position) Turn() Color {
	if p.game.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// ApplyUCI applies a move given in coordinate notation (e2e4, e7e8q).
func (p *Position) ApplyUCI(uci string) error {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if uci == "" {
		return ErrIllegalMove
	}
	mv, err := nchess.UCINotation{}.Decode(p.game.Position(), uci)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	if err := p.game.Move(mv, nil); err != nil {
		return fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	return nil
}

// ApplySAN applies a move given in standard algebraic notation (Nf6, O-O).
func (p *Position) ApplySAN(san string) error {
	san = strings.TrimSpace(san)
	if san == "" {
		return ErrIllegalMove
	}
	if err := p.game.PushNotationMove(san, nchess.AlgebraicNotation{}, nil); err != nil {
		return fmt.Errorf("%w: %s", ErrIllegalMove, san)
	}
	return nil
}

// LegalMoves lists every legal move in the current position together with
// the tactical attributes used by the fallback selector.
func (p *Position) LegalMoves() []MoveDescriptor {
	pos := p.game.Position()
	valid := p.game.ValidMoves()
	notation := nchess.AlgebraicNotation{}
	out := make([]MoveDescriptor, 0, len(valid))
	for i := range valid {
		mv := &valid[i]
		san := notation.Encode(pos, mv)
		d := MoveDescriptor{
			UCI:     mv.String(),
			SAN:     san,
			Capture: mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
			Check:   mv.HasTag(nchess.Check) || strings.ContainsAny(san, "+#"),
			Mate:    strings.Contains(san, "#"),
		}
		if moving := pos.Board().Piece(mv.S1()); moving != nchess.NoPiece {
			pt := moving.Type()
			d.Develops = pt == nchess.Knight || pt == nchess.Bishop
		}
		if d.Capture {
			if victim := pos.Board().Piece(mv.S2()); victim != nchess.NoPiece {
				d.CaptureValue = pieceValues[victim.Type()]
			} else {
				// en passant: the captured pawn is not on the target square
				d.CaptureValue = pieceValues[nchess.Pawn]
			}
		}
		out = append(out, d)
	}
	return out
}

// SANHistory returns the moves played so far in algebraic notation.
func (p *Position) SANHistory() []string {
	moves := p.game.Moves()
	positions := p.game.Positions()
	notation := nchess.AlgebraicNotation{}
	out := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			out = append(out, notation.Encode(positions[i], mv))
		}
	}
	return out
}

// UCIHistory returns the moves played so far in coordinate notation.
func (p *Position) UCIHistory() []string {
	moves := p.game.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.String())
	}
	return out
}

// FullMoveNumber is the number of the move about to be played.
func (p *Position) FullMoveNumber() int {
	return len(p.game.Moves())/2 + 1
}

// GameOver reports whether the position itself is terminal.
func (p *Position) GameOver() bool {
	return p.game.Outcome() != nchess.NoOutcome
}

// Checkmate reports whether the side to move has been mated.
func (p *Position) Checkmate() bool {
	return p.game.Method() == nchess.Checkmate
}

// Draw reports a drawn terminal position (stalemate, repetition,
// insufficient material, fifty-move rule).
func (p *Position) Draw() bool {
	return p.game.Outcome() == nchess.Draw
}
