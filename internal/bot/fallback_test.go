package bot

import (
	"math/rand"
	"path/filepath"
	"os"
	"testing"
	"time"

	"github.com/hyeon-dev/chessroom/internal/rules"
)

func testRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

func descriptors() []rules.MoveDescriptor {
	return []rules.MoveDescriptor{
		{UCI: "a2a3", SAN: "a3"},
		{UCI: "g1f3", SAN: "Nf3", Develops: true},
		{UCI: "d1h5", SAN: "Qh5+", Check: true},
		{UCI: "e4d5", SAN: "exd5", Capture: true, CaptureValue: 1},
		{UCI: "f3e5", SAN: "Nxe5", Capture: true, CaptureValue: 3, Develops: true},
	}
}

func TestSelectFallbackEmpty(t *testing.T) {
	if _, err := SelectFallback(nil, SkillHard, testRand()); err != ErrNoLegalMoves {
		t.Fatalf("expected ErrNoLegalMoves, got %v", err)
	}
}

func TestSelectFallbackHardPrefersMate(t *testing.T) {
	moves := append(descriptors(), rules.MoveDescriptor{UCI: "d8h4", SAN: "Qh4#", Check: true, Mate: true})
	got, err := SelectFallback(moves, SkillHard, testRand())
	if err != nil {
		t.Fatalf("SelectFallback: %v", err)
	}
	if got.UCI != "d8h4" {
		t.Fatalf("hard skill must take the mate, got %s", got.UCI)
	}
}

func TestSelectFallbackHardPrefersCheckThenCapture(t *testing.T) {
	got, err := SelectFallback(descriptors(), SkillHard, testRand())
	if err != nil {
		t.Fatalf("SelectFallback: %v", err)
	}
	if !got.Check {
		t.Fatalf("hard skill must prefer a check when no mate exists, got %+v", got)
	}

	// Without checks, the highest-value capture wins.
	quiet := []rules.MoveDescriptor{
		{UCI: "a2a3", SAN: "a3"},
		{UCI: "e4d5", SAN: "exd5", Capture: true, CaptureValue: 1},
		{UCI: "f3e5", SAN: "Nxe5", Capture: true, CaptureValue: 3},
	}
	got, err = SelectFallback(quiet, SkillHard, testRand())
	if err != nil {
		t.Fatalf("SelectFallback: %v", err)
	}
	if got.UCI != "f3e5" {
		t.Fatalf("hard skill must take the biggest capture, got %s", got.UCI)
	}
}

func TestSelectFallbackMediumStaysTactical(t *testing.T) {
	r := testRand()
	for i := 0; i < 50; i++ {
		got, err := SelectFallback(descriptors(), SkillMedium, r)
		if err != nil {
			t.Fatalf("SelectFallback: %v", err)
		}
		if !got.Capture && !got.Check && !got.Develops {
			t.Fatalf("medium skill picked a quiet move: %+v", got)
		}
	}
}

func TestSelectFallbackEasyAlwaysLegal(t *testing.T) {
	r := testRand()
	moves := descriptors()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		got, err := SelectFallback(moves, SkillEasy, r)
		if err != nil {
			t.Fatalf("SelectFallback: %v", err)
		}
		seen[got.UCI] = true
	}
	// easy skill should still reach quiet moves most of the time
	if !seen["a2a3"] {
		t.Fatalf("easy skill never played a quiet move over 200 draws")
	}
}

func TestParseSkill(t *testing.T) {
	if ParseSkill("hard") != SkillHard {
		t.Fatalf("hard not recognized")
	}
	if ParseSkill("grandmaster") != SkillMedium {
		t.Fatalf("unknown skill must default to medium")
	}
}

func TestDelayPickWithinBounds(t *testing.T) {
	d := DefaultDelays()
	r := testRand()
	for i := 0; i < 100; i++ {
		got := d.Pick(SkillHard, r)
		if got < 2000*time.Millisecond || got > 4000*time.Millisecond {
			t.Fatalf("hard delay out of range: %v", got)
		}
	}
	if got := d.Pick(Skill("bogus"), r); got != time.Second {
		t.Fatalf("unknown skill delay should be 1s, got %v", got)
	}
}

func TestLoadDelaysOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delays.yml")
	body := "easy:\n  min_millis: 10\n  max_millis: 20\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write preset file: %v", err)
	}
	d, err := LoadDelays(path)
	if err != nil {
		t.Fatalf("LoadDelays: %v", err)
	}
	if d[SkillEasy].MinMillis != 10 || d[SkillEasy].MaxMillis != 20 {
		t.Fatalf("easy preset not overridden: %+v", d[SkillEasy])
	}
	if d[SkillHard] != defaultDelays[SkillHard] {
		t.Fatalf("hard preset should keep default: %+v", d[SkillHard])
	}
}

func TestLoadDelaysRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("wizard:\n  min_millis: 1\n  max_millis: 2\n"), 0o644); err != nil {
		t.Fatalf("write preset file: %v", err)
	}
	if _, err := LoadDelays(bad); err == nil {
		t.Fatalf("expected error on unknown skill")
	}
	inverted := filepath.Join(dir, "inverted.yml")
	if err := os.WriteFile(inverted, []byte("easy:\n  min_millis: 50\n  max_millis: 10\n"), 0o644); err != nil {
		t.Fatalf("write preset file: %v", err)
	}
	if _, err := LoadDelays(inverted); err == nil {
		t.Fatalf("expected error on inverted range")
	}
}
