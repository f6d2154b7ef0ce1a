package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/teampulse/internal/adapters/leaderboard"
	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// StreamHandler pushes every newly published snapshot of a scope to a
// websocket client.
type StreamHandler struct {
	deps         Dependencies
	log          logger.Logger
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies, log logger.Logger, pingInterval time.Duration) *StreamHandler {
	return &StreamHandler{
		deps:         deps,
		log:          log,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleStream handles GET /scopes/{scope}/stream. The last published
// snapshot, if any, is sent first.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	scopeID := r.PathValue("scope")
	if _, err := h.deps.Scope(r.Context(), scopeID); err != nil {
		logFailure(r.Context(), h.log, op, err)
		writeFailure(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.String("scope", scopeID), logger.Error(err))
		return
	}
	defer conn.Close()

	sub, err := h.deps.Subscribe(r.Context(), scopeID)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), time.Now().Add(writeWait))
		return
	}
	defer sub.Close()

	h.log.Debug(r.Context(), "stream opened", logger.String("scope", scopeID), logger.String("subscription", sub.ID()))
	go h.readPump(conn, sub.Close)

	// Snapshots published between Subscribe and this read also arrive on
	// the channel; only strictly newer ones are written.
	var sentAt time.Time
	if snap, err := h.deps.Snapshot(r.Context(), scopeID); err == nil {
		if err := h.write(conn, snap); err != nil {
			return
		}
		sentAt = snap.ComputedAt
	} else if !errors.Is(err, leaderboard.ErrNotFound) {
		h.log.Warn(r.Context(), "initial snapshot unavailable", logger.String("scope", scopeID), logger.Error(err))
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case snap, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if !sentAt.IsZero() && !snap.ComputedAt.After(sentAt) {
				continue
			}
			if err := h.write(conn, snap); err != nil {
				return
			}
			sentAt = snap.ComputedAt
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, snap model.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, body)
}

// readPump discards client messages and handles pongs. It ends the
// subscription when the client goes away.
func (h *StreamHandler) readPump(conn *websocket.Conn, done func()) {
	defer done()
	pongWait := h.pingInterval * 2
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
