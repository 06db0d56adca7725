// Package archive persists finished games. Rooms themselves never outlive
// the process; only terminal results (checkmate, draw, timeout) are kept.
package archive

import (
	"context"
	"sync"
	"time"
)

// Result is the terminal record of one room.
type Result struct {
	RoomCode   string    `json:"room_code"`
	WhiteName  string    `json:"white_name"`
	BlackName  string    `json:"black_name"`
	Winner     string    `json:"winner,omitempty"` // "white", "black", or "" for draws
	Outcome    string    `json:"outcome"`          // "checkmate", "draw", "timeout"
	FinalFEN   string    `json:"final_fen"`
	MovesUCI   []string  `json:"moves_uci"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store records and lists finished games.
type Store interface {
	SaveResult(ctx context.Context, res *Result) error
	RecentResults(ctx context.Context, limit int) ([]*Result, error)
}

// memstore keeps results in memory, newest first. Used when no REDIS_URL
// is configured.
type memstore struct {
	mu      sync.RWMutex
	results []*Result
	cap     int
}

// NewMemoryStore returns an in-process Store bounded to cap entries
// (0 means 1000).
func NewMemoryStore(cap int) Store {
	if cap <= 0 {
		cap = 1000
	}
	return &memstore{cap: cap}
}

func (m *memstore) SaveResult(_ context.Context, res *Result) error {
	if res == nil {
		return nil
	}
	cp := *res
	cp.MovesUCI = append([]string(nil), res.MovesUCI...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append([]*Result{&cp}, m.results...)
	if len(m.results) > m.cap {
		m.results = m.results[:m.cap]
	}
	return nil
}

func (m *memstore) RecentResults(_ context.Context, limit int) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.results) {
		limit = len(m.results)
	}
	out := make([]*Result, 0, limit)
	for _, r := range m.results[:limit] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}
