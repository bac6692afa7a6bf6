package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/viewer"
)

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleEvents streams viewer events as JSON text frames until the client
// goes away. A client that falls behind by more than eventBuffer events
// loses the overflow.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan viewer.Event, eventBuffer)
	unsubscribe := h.viewer.Subscribe(func(e viewer.Event) {
		select {
		case ch <- e:
		default:
			h.log.Warn().Str("event", string(e.Type)).Msg("event subscriber lagging, dropping event")
		}
	})
	defer unsubscribe()

	// Reads only detect the close; clients have nothing to send.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case e := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				h.log.Debug().Err(err).Msg("event write failed, closing stream")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
