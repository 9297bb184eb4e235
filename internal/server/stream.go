package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum command size allowed from peer.
	maxMessageSize = 4096
)

// Stream message types.
const (
	MessageSnapshot   = "snapshot"
	MessageDealerStep = "dealer_step"
	MessagePrompt     = "prompt"
	MessageError      = "error"
)

// message is sent to websocket clients.
type message struct {
	Type     string         `json:"type"`
	Snapshot *game.Snapshot `json:"snapshot,omitempty"`
	Error    *errorDetail   `json:"error,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// stream is one websocket client of a table. Commands are read and applied
// in order; the dealer's turn is replayed one step per Rules.DealerStep and
// a new-round prompt follows after Rules.PromptDelay.
type stream struct {
	server *Server
	conn   *websocket.Conn
	id     auth.Identity
	table  *game.Table
	clock  quartz.Clock
	logger *log.Logger
	send   chan message

	mu     sync.Mutex
	prompt *quartz.Timer
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, t, err := s.table(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	header := http.Header{}
	if id.Guest {
		header.Set(auth.GuestHeader, id.UserID)
	}
	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	st := &stream{
		server: s,
		conn:   conn,
		id:     id,
		table:  t,
		clock:  s.cfg.Clock,
		logger: s.logger.With("user", id.UserID),
		send:   make(chan message, 16),
	}
	st.logger.Debug("stream opened")

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		st.writePump(ctx)
	}()
	st.readPump(ctx)
	cancel()
	<-done
	st.stopPrompt()
	st.logger.Debug("stream closed")
}

func (st *stream) readPump(ctx context.Context) {
	st.conn.SetReadLimit(maxMessageSize)
	_ = st.conn.SetReadDeadline(time.Now().Add(pongWait))
	st.conn.SetPongHandler(func(string) error {
		_ = st.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	st.emitSnapshot(ctx, MessageSnapshot)

	for {
		_, data, err := st.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				st.logger.Warn("websocket read failed", "err", err)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			st.emitError(ctx, errBadRequest)
			continue
		}
		st.handle(ctx, cmd)
		if ctx.Err() != nil {
			return
		}
	}
}

func (st *stream) handle(ctx context.Context, cmd command) {
	st.stopPrompt()

	completed, err := run(ctx, st.table, cmd)
	if err != nil {
		st.emitError(ctx, err)
		return
	}
	st.server.cfg.Tables.Save(ctx, st.id, st.table)

	if !completed {
		st.emitSnapshot(ctx, MessageSnapshot)
		return
	}

	rules := st.table.Rules()
	first := true
	for step := range st.table.DealerSteps() {
		if !first && !st.wait(ctx, rules.DealerStep) {
			return
		}
		first = false
		if !st.emit(ctx, message{Type: MessageDealerStep, Snapshot: &step}) {
			return
		}
	}
	st.schedulePrompt(ctx, rules.PromptDelay)
}

// wait pauses for d on the stream's clock. It reports false if ctx ended.
func (st *stream) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := st.clock.NewTimer(d, "stream", "dealer")
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (st *stream) schedulePrompt(ctx context.Context, delay time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.prompt = st.clock.AfterFunc(delay, func() {
		if st.table.Phase() != game.PhaseComplete {
			return
		}
		snap := st.table.Snapshot()
		st.emit(ctx, message{Type: MessagePrompt, Message: "Play another round?", Snapshot: &snap})
	}, "stream", "prompt")
}

func (st *stream) stopPrompt() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.prompt != nil {
		st.prompt.Stop()
		st.prompt = nil
	}
}

func (st *stream) emitSnapshot(ctx context.Context, kind string) {
	snap := st.table.Snapshot()
	st.emit(ctx, message{Type: kind, Snapshot: &snap})
}

func (st *stream) emitError(ctx context.Context, err error) {
	_, detail := classify(err)
	st.emit(ctx, message{Type: MessageError, Error: &detail})
}

func (st *stream) emit(ctx context.Context, m message) bool {
	select {
	case st.send <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

func (st *stream) writePump(ctx context.Context) {
	ticker := st.clock.NewTicker(pingPeriod, "stream", "ping")
	defer func() {
		ticker.Stop()
		_ = st.conn.Close()
	}()

	for {
		select {
		case m := <-st.send:
			_ = st.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := st.conn.WriteJSON(m); err != nil {
				st.logger.Debug("websocket write failed", "err", err)
				return
			}
		case <-ticker.C:
			_ = st.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := st.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = st.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = st.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
