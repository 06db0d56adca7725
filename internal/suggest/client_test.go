package suggest

import (
	"context"
	"strings"
	"testing"
)

func TestDisabledWithoutKey(t *testing.T) {
	c := NewClient("")
	if c.Enabled() {
		t.Fatalf("client without key must be disabled")
	}
	_, err := c.SuggestMove(context.Background(), Request{FEN: "x", LegalSAN: []string{"e4"}})
	if err != ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if _, err := c.AnalyzePosition(context.Background(), "x"); err != ErrDisabled {
		t.Fatalf("expected ErrDisabled from analysis, got %v", err)
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	fen := "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	prompt := BuildAnalysisPrompt(fen)
	for _, want := range []string{fen, "Material balance", "tactical threats", "concise"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("analysis prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptContents(t *testing.T) {
	req := Request{
		FEN:        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		LegalSAN:   []string{"e4", "d4", "Nf3"},
		HistorySAN: []string{"e4", "c5", "Nf3", "d6", "d4", "cxd4", "Nxd4", "Nf6"},
		Skill:      "hard",
		MoveNumber: 5,
	}
	prompt := BuildPrompt(req)
	for _, want := range []string{
		req.FEN,
		"Game phase: opening (move 5)",
		"Available moves: e4, d4, Nf3",
		"Difficulty: hard",
		"forcing and strongest",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	// only the last six history moves are quoted
	if strings.Contains(prompt, "e4, c5, Nf3, d6, d4, cxd4, Nxd4") {
		t.Fatalf("prompt should quote at most 6 recent moves")
	}
	if !strings.Contains(prompt, "Nf3, d6, d4, cxd4, Nxd4, Nf6") {
		t.Fatalf("prompt missing recent moves window:\n%s", prompt)
	}
}

func TestBuildPromptPhases(t *testing.T) {
	base := Request{FEN: "f", LegalSAN: []string{"e4"}, Skill: "medium"}

	base.MoveNumber = 3
	if !strings.Contains(BuildPrompt(base), "opening") {
		t.Fatalf("move 3 should be opening")
	}
	base.MoveNumber = 18
	if !strings.Contains(BuildPrompt(base), "middlegame") {
		t.Fatalf("move 18 should be middlegame")
	}
	base.MoveNumber = 40
	if !strings.Contains(BuildPrompt(base), "endgame") {
		t.Fatalf("move 40 should be endgame")
	}
	if !strings.Contains(BuildPrompt(base), "Game start") {
		t.Fatalf("empty history should read 'Game start'")
	}
}

func TestExtractMove(t *testing.T) {
	legal := []string{"Nf6", "e5", "O-O", "Qxd4"}
	cases := []struct {
		in   string
		want string
	}{
		{"Nf6", "Nf6"},
		{"Nf6.", "Nf6"},
		{"I would play e5!", "e5"},
		{"The best move here is O-O, castling short.", "O-O"},
		{"  Qxd4  ", "Qxd4"},
		{"resign", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractMove(tc.in, legal); got != tc.want {
			t.Fatalf("ExtractMove(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
