package archive

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func sample(code string) *Result {
	return &Result{
		RoomCode:   code,
		WhiteName:  "Alice",
		BlackName:  "Bob",
		Winner:     "white",
		Outcome:    "checkmate",
		FinalFEN:   "8/8/8/8/8/8/8/8 w - - 0 1",
		MovesUCI:   []string{"e2e4", "e7e5"},
		FinishedAt: time.Now().UTC(),
	}
}

func TestMemoryStoreOrderAndCap(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.SaveResult(ctx, sample(fmt.Sprintf("R%d", i))); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}
	got, err := s.RecentResults(ctx, 10)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cap not enforced, got %d results", len(got))
	}
	if got[0].RoomCode != "R2" || got[1].RoomCode != "R1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].RoomCode, got[1].RoomCode)
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	res := sample("COPY")
	if err := s.SaveResult(ctx, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	res.MovesUCI[0] = "mutated"
	got, err := s.RecentResults(ctx, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("RecentResults: %v (%d)", err, len(got))
	}
	if got[0].MovesUCI[0] != "e2e4" {
		t.Fatalf("store must not alias caller slices")
	}
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewRedisStore(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.SaveResult(ctx, sample(fmt.Sprintf("R%d", i))); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}
	got, err := s.RecentResults(ctx, 2)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].RoomCode != "R2" {
		t.Fatalf("expected newest first, got %s", got[0].RoomCode)
	}
	if got[0].Winner != "white" || got[0].Outcome != "checkmate" {
		t.Fatalf("result fields lost: %+v", got[0])
	}
	if len(got[0].MovesUCI) != 2 {
		t.Fatalf("move list lost: %+v", got[0].MovesUCI)
	}
}

func TestRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("http://localhost:6379"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
