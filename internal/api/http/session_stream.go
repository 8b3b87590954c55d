// internal/api/http/session_stream.go
package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mind-engage/mindengage-quiz/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type streamMessage struct {
	Type    string            `json:"type"` // "snapshot" or "closed"
	Payload *session.Snapshot `json:"payload,omitempty"`
}

// StreamHandler pushes a snapshot to the client after every tick and command
// until the session is removed or the client goes away. An empty allow-list
// accepts any origin.
func StreamHandler(mgr *session.Manager, origins []string, log *slog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || len(origins) == 0 || slices.Contains(origins, o)
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := viewer(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "sessionID")
		updates, cancel, err := mgr.Subscribe(uid, id)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		defer cancel()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			log.Warn("websocket upgrade failed", slog.String("session_id", id), slog.String("error", err.Error()))
			return
		}
		defer conn.Close()

		gone := make(chan struct{})
		go readPump(conn, gone)

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()

		for {
			select {
			case <-gone:
				return
			case snap, open := <-updates:
				if !open {
					_ = send(conn, streamMessage{Type: "closed"})
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(wsWriteWait))
					return
				}
				if err := send(conn, streamMessage{Type: "snapshot", Payload: &snap}); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

func send(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}

// readPump drains client frames so control messages are processed, and
// closes gone when the connection fails.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
