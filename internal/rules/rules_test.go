package rules

import (
	"testing"
)

func TestStartingPosition(t *testing.T) {
	p := NewPosition()
	if p.Turn() != White {
		t.Fatalf("expected white to move, got %s", p.Turn())
	}
	moves := p.LegalMoves()
	if len(moves) != 20 {
		t.Fatalf("expected 20 legal moves at start, got %d", len(moves))
	}
	if p.GameOver() {
		t.Fatalf("starting position must not be terminal")
	}
}

func TestApplyUCIAndTurnFlip(t *testing.T) {
	p := NewPosition()
	if err := p.ApplyUCI("e2e4"); err != nil {
		t.Fatalf("ApplyUCI e2e4: %v", err)
	}
	if p.Turn() != Black {
		t.Fatalf("expected black to move after e2e4, got %s", p.Turn())
	}
	if err := p.ApplySAN("Nc6"); err != nil {
		t.Fatalf("ApplySAN Nc6: %v", err)
	}
	if got := len(p.UCIHistory()); got != 2 {
		t.Fatalf("expected 2 moves in history, got %d", got)
	}
}

func TestRejectedMoveLeavesPositionUnchanged(t *testing.T) {
	p := NewPosition()
	before := p.FEN()
	if err := p.ApplyUCI("e2e5"); err == nil {
		t.Fatalf("expected illegal move to be rejected")
	}
	if err := p.ApplySAN("Qh5"); err == nil {
		t.Fatalf("expected Qh5 from start to be rejected")
	}
	if p.FEN() != before {
		t.Fatalf("position mutated by rejected move: %s vs %s", p.FEN(), before)
	}
}

func TestFENRoundTrip(t *testing.T) {
	p := NewPosition()
	for _, uci := range []string{"e2e4", "c7c5", "g1f3"} {
		if err := p.ApplyUCI(uci); err != nil {
			t.Fatalf("ApplyUCI %s: %v", uci, err)
		}
	}
	fen := p.FEN()
	q, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if q.FEN() != fen {
		t.Fatalf("round trip mismatch:\n%s\n%s", fen, q.FEN())
	}
	if q.Turn() != Black {
		t.Fatalf("expected black to move after round trip, got %s", q.Turn())
	}
}

func TestFoolsMateIsCheckmate(t *testing.T) {
	p := NewPosition()
	for _, uci := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if err := p.ApplyUCI(uci); err != nil {
			t.Fatalf("ApplyUCI %s: %v", uci, err)
		}
	}
	if !p.GameOver() || !p.Checkmate() {
		t.Fatalf("expected checkmate: over=%v mate=%v", p.GameOver(), p.Checkmate())
	}
	if p.Draw() {
		t.Fatalf("checkmate misclassified as draw")
	}
}

func TestLegalMovesFlagMateAndCapture(t *testing.T) {
	// One move before fool's mate: black to play, Qh4# available.
	p := NewPosition()
	for _, uci := range []string{"f2f3", "e7e5", "g2g4"} {
		if err := p.ApplyUCI(uci); err != nil {
			t.Fatalf("ApplyUCI %s: %v", uci, err)
		}
	}
	var mate MoveDescriptor
	for _, d := range p.LegalMoves() {
		if d.Mate {
			mate = d
			break
		}
	}
	if mate.UCI == "" {
		t.Fatalf("expected a mating move to be flagged")
	}
	if mate.UCI != "d8h4" {
		t.Fatalf("expected d8h4 to be the mate, got %s", mate.UCI)
	}
	if !mate.Check {
		t.Fatalf("mating move must also be flagged as check")
	}
}

func TestCaptureValue(t *testing.T) {
	// Scandinavian: after e4 d5, exd5 captures a pawn.
	p := NewPosition()
	for _, uci := range []string{"e2e4", "d7d5"} {
		if err := p.ApplyUCI(uci); err != nil {
			t.Fatalf("ApplyUCI %s: %v", uci, err)
		}
	}
	found := false
	for _, d := range p.LegalMoves() {
		if d.UCI == "e4d5" {
			found = true
			if !d.Capture || d.CaptureValue != 1 {
				t.Fatalf("exd5 should be a pawn capture, got %+v", d)
			}
		}
	}
	if !found {
		t.Fatalf("e4d5 not found among legal moves")
	}
}

func TestOpponentAndShort(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatalf("opponent mapping broken")
	}
	if White.Short() != "w" || Black.Short() != "b" {
		t.Fatalf("short role codes broken")
	}
}
