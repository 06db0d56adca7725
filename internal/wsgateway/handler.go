// Package wsgateway terminates websocket connections and translates the
// JSON wire protocol into coordinator calls.
package wsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hyeon-dev/chessroom/internal/archive"
	"github.com/hyeon-dev/chessroom/internal/obslog"
	"github.com/hyeon-dev/chessroom/internal/session"
	"github.com/hyeon-dev/chessroom/pkg/wire"
)

const (
	outboxSize   = 16
	writeTimeout = 5 * time.Second
)

type Gateway struct {
	coord          *session.Coordinator
	store          archive.Store
	allowedOrigins []string
}

func New(coord *session.Coordinator, store archive.Store, allowedOrigins []string) *Gateway {
	return &Gateway{coord: coord, store: store, allowedOrigins: allowedOrigins}
}

// Router builds the HTTP surface: the websocket endpoint plus the static
// client bundle. An empty publicDir disables static serving.
func (g *Gateway) Router(publicDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", g.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/results", g.handleResults)
	if publicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(publicDir)))
	}
	return r
}

// handleResults lists recently finished games from the archive, newest
// first. limit defaults to 20 and is capped at 100.
func (g *Gateway) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	results, err := g.store.RecentResults(ctx, limit)
	if err != nil {
		obslog.L().Error("results_list_error", zap.Error(err))
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		obslog.L().Debug("results_encode_error", zap.Error(err))
	}
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.allowedOrigins,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	connID := uuid.NewString()
	out := make(chan wire.Event, outboxSize)
	g.coord.Register(connID, out)
	obslog.L().Info("ws_connected", zap.String("conn", connID))

	// Writer drains the outbox until it is closed after Disconnect. The
	// coordinator is the only sender, so the close below cannot race a send.
	writeCtx, cancelWrites := context.WithCancel(context.Background())
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for evt := range out {
			ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
			err := wsjson.Write(ctx, conn, evt)
			cancel()
			if err != nil {
				return
			}
		}
	}()

	g.readLoop(r.Context(), conn, connID)

	g.coord.Disconnect(connID)
	close(out)
	cancelWrites()
	<-writerDone
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	obslog.L().Info("ws_disconnected", zap.String("conn", connID))
}

// readLoop consumes client events until the connection errors or closes.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, connID string) {
	for {
		var evt wire.Event
		if err := wsjson.Read(ctx, conn, &evt); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				obslog.L().Debug("ws_read_error", zap.String("conn", connID), zap.Error(err))
			}
			return
		}
		g.dispatch(connID, evt)
	}
}

func (g *Gateway) dispatch(connID string, evt wire.Event) {
	switch evt.Type {
	case wire.EvtJoin:
		var req wire.JoinRequest
		if !decodePayload(connID, evt, &req) {
			return
		}
		g.coord.Join(connID, req.Name, req.TimeLimit, req.RoomCode)
	case wire.EvtCreateBotGame:
		var req wire.CreateBotGameRequest
		if !decodePayload(connID, evt, &req) {
			return
		}
		g.coord.CreateBotGame(connID, req.Name, req.TimeLimit, req.Skill)
	case wire.EvtMove:
		var req wire.MoveRequest
		if !decodePayload(connID, evt, &req) {
			return
		}
		g.coord.Move(connID, req)
	default:
		obslog.L().Debug("ws_unknown_event",
			zap.String("conn", connID),
			zap.String("type", string(evt.Type)),
		)
	}
}

func decodePayload(connID string, evt wire.Event, v any) bool {
	if len(evt.Payload) == 0 {
		obslog.L().Debug("ws_empty_payload",
			zap.String("conn", connID),
			zap.String("type", string(evt.Type)),
		)
		return false
	}
	if err := json.Unmarshal(evt.Payload, v); err != nil {
		obslog.L().Debug("ws_bad_payload",
			zap.String("conn", connID),
			zap.String("type", string(evt.Type)),
			zap.Error(err),
		)
		return false
	}
	return true
}
